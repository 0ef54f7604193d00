package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/washgeo/internal/region"
)

type RegionHandler struct {
	regions *region.Table
}

func NewRegionHandler(regions *region.Table) *RegionHandler {
	return &RegionHandler{regions: regions}
}

func (h *RegionHandler) Cities(w http.ResponseWriter, r *http.Request) {
	cities := h.regions.Cities()
	writeJSON(w, http.StatusOK, map[string]interface{}{"cities": cities, "count": len(cities)})
}

func (h *RegionHandler) Talukas(w http.ResponseWriter, r *http.Request) {
	city := pathParam(r, "city")
	talukas := h.regions.TalukasOf(city)
	writeJSON(w, http.StatusOK, map[string]interface{}{"city": city, "talukas": talukas, "count": len(talukas)})
}

func (h *RegionHandler) CityOf(w http.ResponseWriter, r *http.Request) {
	taluka := pathParam(r, "taluka")
	city, ok := h.regions.CityOfTaluka(taluka)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown taluka"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"taluka": taluka, "city": city})
}

// pathParam decodes a URL parameter. chi matches on the raw path when the
// request escaped it differently from Go's default, leaving escapes in place.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
