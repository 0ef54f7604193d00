package region

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestDefaultTableLoads(t *testing.T) {
	tbl := Default()
	if len(tbl.Cities()) == 0 {
		t.Fatal("expected embedded table to have cities")
	}
	if len(tbl.AllTalukas()) == 0 {
		t.Fatal("expected embedded table to have talukas")
	}
}

func TestContainmentClosure(t *testing.T) {
	tbl := Default()
	cities := tbl.Cities()
	talukas := tbl.AllTalukas()

	for _, c := range cities {
		of := make(map[string]bool)
		for _, tk := range tbl.TalukasOf(c) {
			of[tk] = true
		}
		for _, tk := range talukas {
			contains := tbl.CityContainsTaluka(c, tk)
			owner, ok := tbl.CityOfTaluka(tk)
			byOwner := ok && owner == c

			if of[tk] != contains || contains != byOwner {
				t.Errorf("city %q taluka %q: talukasOf=%v contains=%v cityOf=%v", c, tk, of[tk], contains, byOwner)
			}
		}
	}
}

func TestTalukasAreDisjoint(t *testing.T) {
	tbl := Default()
	seen := make(map[string]string)
	for _, c := range tbl.Cities() {
		for _, tk := range tbl.TalukasOf(c) {
			if prev, dup := seen[tk]; dup {
				t.Errorf("taluka %q appears under %q and %q", tk, prev, c)
			}
			seen[tk] = c
		}
	}
	if len(seen) != len(tbl.AllTalukas()) {
		t.Errorf("AllTalukas has %d entries, want %d distinct", len(tbl.AllTalukas()), len(seen))
	}
}

func TestAllTalukasOrder(t *testing.T) {
	tbl := Default()
	var want []string
	for _, c := range tbl.Cities() {
		want = append(want, tbl.TalukasOf(c)...)
	}
	got := tbl.AllTalukas()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("AllTalukas order differs from city iteration order")
	}
}

func TestKnownEntries(t *testing.T) {
	tbl := Default()
	cases := []struct {
		taluka string
		city   string
	}{
		{"Chorasi", "Surat (City)"},
		{"Palsana", "Surat (City)"},
		{"Daskroi", "Ahmedabad (City)"},
		{"Gondal", "Rajkot (City)"},
		{"Rajkot City", "Rajkot (City)"},
	}
	for _, tc := range cases {
		got, ok := tbl.CityOfTaluka(tc.taluka)
		if !ok || got != tc.city {
			t.Errorf("CityOfTaluka(%q) = %q, %v; want %q", tc.taluka, got, ok, tc.city)
		}
	}
}

func TestUnknownLookups(t *testing.T) {
	tbl := Default()

	got := tbl.TalukasOf("Nonexistent City")
	if got == nil || len(got) != 0 {
		t.Errorf("TalukasOf unknown city = %#v, want empty non-nil slice", got)
	}
	if _, ok := tbl.CityOfTaluka("Nowhere"); ok {
		t.Error("CityOfTaluka of unknown taluka reported a city")
	}
	if tbl.CityContainsTaluka("Surat (City)", "Gondal") {
		t.Error("Surat should not contain Gondal")
	}
	if tbl.HasCity("Guatemala City") {
		t.Error("unexpected city")
	}
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	tbl := Default()
	ts := tbl.TalukasOf("Surat (City)")
	ts[0] = "mutated"
	if tbl.TalukasOf("Surat (City)")[0] == "mutated" {
		t.Error("TalukasOf exposed internal storage")
	}
	cs := tbl.Cities()
	cs[0] = "mutated"
	if tbl.Cities()[0] == "mutated" {
		t.Error("Cities exposed internal storage")
	}
}

func TestParseRejectsMalformedTables(t *testing.T) {
	cases := map[string]string{
		"duplicate taluka": `
cities:
  - name: A
    talukas: [X, Y]
  - name: B
    talukas: [Y]
`,
		"duplicate city": `
cities:
  - name: A
    talukas: [X]
  - name: A
    talukas: [Z]
`,
		"empty city name": `
cities:
  - name: ""
    talukas: [X]
`,
		"empty taluka": `
cities:
  - name: A
    talukas: [" "]
`,
		"not yaml": "cities: [",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(src)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseTrimsNames(t *testing.T) {
	tbl, err := Parse([]byte("cities:\n  - name: ' A '\n    talukas: [' X ']\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !tbl.CityContainsTaluka("A", "X") {
		t.Error("expected trimmed names to match")
	}
}

// Region names live only in gujarat.yaml. Any quoted taluka in non-test Go
// source elsewhere is a second copy of the table waiting to drift.
func TestSingleSourceOfRegionNames(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		t.Skip("module root not found")
	}

	var literals []string
	for _, c := range Default().Cities() {
		literals = append(literals, strconv.Quote(c))
	}
	for _, tk := range Default().AllTalukas() {
		literals = append(literals, strconv.Quote(tk))
	}

	self, _ := filepath.Abs(".")
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor") {
				return filepath.SkipDir
			}
			if path == self {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for _, lit := range literals {
			if strings.Contains(string(src), lit) {
				t.Errorf("%s contains region literal %s", path, lit)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
