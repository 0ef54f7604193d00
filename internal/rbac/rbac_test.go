package rbac

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/washgeo/internal/models"
	"github.com/nikhilbhutani/washgeo/internal/region"
)

func testTable(t *testing.T) *region.Table {
	t.Helper()
	tbl, err := region.New([]region.City{
		{Name: "North", Talukas: []string{"N1", "N2", "N3"}},
		{Name: "South", Talukas: []string{"S1", "S2"}},
		{Name: "East", Talukas: []string{"E1"}},
	})
	if err != nil {
		t.Fatalf("region.New: %v", err)
	}
	return tbl
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestAccessibleCities(t *testing.T) {
	r := NewResolver(testTable(t))

	cases := []struct {
		role   models.Role
		cities []string
		want   []string
	}{
		{models.RoleAdmin, nil, []string{"North", "South", "East"}},
		{models.RoleSubGeneral, []string{"South", "Unknown"}, []string{"South", "Unknown"}},
		{models.RoleGeneral, []string{"North"}, []string{}},
		{models.RoleHRGeneral, []string{"North"}, []string{}},
		{models.RoleSales, []string{"North"}, []string{}},
		{models.RoleWasher, []string{"North"}, []string{}},
		{models.RoleCustomer, []string{"North"}, []string{}},
		{models.Role("rider"), []string{"North"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			got := r.AccessibleCities(tc.role, tc.cities)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAccessibleTalukas(t *testing.T) {
	r := NewResolver(testTable(t))

	cases := []struct {
		name    string
		role    models.Role
		cities  []string
		talukas []string
		want    []string
	}{
		{"admin", models.RoleAdmin, nil, nil, []string{"N1", "N2", "N3", "S1", "S2", "E1"}},
		{"sub-general union", models.RoleSubGeneral, []string{"South", "East"}, nil, []string{"S1", "S2", "E1"}},
		{"sub-general duplicate cities", models.RoleSubGeneral, []string{"South", "South"}, nil, []string{"S1", "S2"}},
		{"sub-general unknown city", models.RoleSubGeneral, []string{"Atlantis"}, nil, []string{}},
		{"hr-general as assigned", models.RoleHRGeneral, []string{"North"}, []string{"S1", "N1", "S1"}, []string{"S1", "N1"}},
		{"sales", models.RoleSales, nil, []string{"N1"}, []string{}},
		{"washer", models.RoleWasher, nil, []string{"N1"}, []string{}},
		{"general", models.RoleGeneral, []string{"North"}, nil, []string{}},
		{"customer", models.RoleCustomer, []string{"North"}, []string{"N1"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := r.AccessibleTalukas(tc.role, tc.cities, tc.talukas)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSubGeneralTalukasIgnoreInputOrder(t *testing.T) {
	r := NewResolver(region.Default())
	cities := region.Default().Cities()

	forward := r.AccessibleTalukas(models.RoleSubGeneral, cities[:3], nil)
	backward := r.AccessibleTalukas(models.RoleSubGeneral, []string{cities[2], cities[1], cities[0], cities[1]}, nil)

	if !reflect.DeepEqual(sorted(forward), sorted(backward)) {
		t.Fatalf("order changed the result: %v vs %v", forward, backward)
	}

	var union []string
	for _, c := range cities[:3] {
		union = append(union, region.Default().TalukasOf(c)...)
	}
	if !reflect.DeepEqual(sorted(forward), sorted(union)) {
		t.Errorf("got %v, want union %v", forward, union)
	}
	if len(forward) != len(dedupe(forward)) {
		t.Error("result contains duplicates")
	}
}

func TestPermissions(t *testing.T) {
	r := NewResolver(testTable(t))
	p := models.Profile{ID: uuid.New(), Role: models.RoleSubGeneral}

	empty := r.Permissions(p, nil)
	if empty.AssignedCities == nil || len(empty.AssignedCities) != 0 {
		t.Errorf("expected empty assigned cities, got %#v", empty.AssignedCities)
	}
	if len(empty.AccessibleTalukas) != 0 {
		t.Errorf("expected no talukas without assignment, got %v", empty.AccessibleTalukas)
	}

	a := &models.Assignment{UserID: p.ID, Role: p.Role, AssignedCities: []string{"East"}, Version: 4}
	perm := r.Permissions(p, a)
	if !reflect.DeepEqual(perm.AccessibleCities, []string{"East"}) {
		t.Errorf("AccessibleCities = %v", perm.AccessibleCities)
	}
	if !reflect.DeepEqual(perm.AccessibleTalukas, []string{"E1"}) {
		t.Errorf("AccessibleTalukas = %v", perm.AccessibleTalukas)
	}
	if perm.Version != 4 {
		t.Errorf("Version = %d, want 4", perm.Version)
	}
}

func TestFilterUsersByGeographicAccess(t *testing.T) {
	r := NewResolver(testTable(t))
	users := []models.Profile{
		{Email: "a@x", City: "North", Taluka: "N1"},
		{Email: "b@x", City: "South", Taluka: "S2"},
		{Email: "c@x", City: "East", Taluka: "E1"},
		{Email: "d@x"},
	}
	emails := func(ps []models.Profile) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Email)
		}
		return out
	}

	if got := r.FilterUsersByGeographicAccess(users, models.RoleAdmin, nil, nil); len(got) != len(users) {
		t.Errorf("admin saw %d users, want %d", len(got), len(users))
	}
	if got := emails(r.FilterUsersByGeographicAccess(users, models.RoleSubGeneral, []string{"South", "East"}, nil)); !reflect.DeepEqual(got, []string{"b@x", "c@x"}) {
		t.Errorf("sub-general got %v", got)
	}
	if got := emails(r.FilterUsersByGeographicAccess(users, models.RoleHRGeneral, nil, []string{"N1"})); !reflect.DeepEqual(got, []string{"a@x"}) {
		t.Errorf("hr-general got %v", got)
	}
	for _, role := range []models.Role{models.RoleGeneral, models.RoleSales, models.RoleWasher, models.RoleCustomer} {
		if got := r.FilterUsersByGeographicAccess(users, role, []string{"North"}, []string{"N1"}); len(got) != 0 {
			t.Errorf("%s saw %d users, want 0", role, len(got))
		}
	}
}

func TestFilterResourcesJoinsOwner(t *testing.T) {
	type car struct {
		Plate   string
		OwnerID uuid.UUID
	}
	alice, bob, ghost := uuid.New(), uuid.New(), uuid.New()
	owners := map[uuid.UUID]models.Profile{
		alice: {ID: alice, City: "North", Taluka: "N2"},
		bob:   {ID: bob, City: "South", Taluka: "S1"},
	}
	cars := []car{{"GJ-01", alice}, {"GJ-05", bob}, {"GJ-99", ghost}}
	locate := OwnerLocator(func(c car) uuid.UUID { return c.OwnerID }, owners)

	got := FilterResourcesByGeographicAccess(cars, locate, models.RoleHRGeneral, nil, []string{"S1"})
	if len(got) != 1 || got[0].Plate != "GJ-05" {
		t.Errorf("hr-general got %v", got)
	}

	got = FilterResourcesByGeographicAccess(cars, locate, models.RoleSubGeneral, []string{"North", "South"}, nil)
	if len(got) != 2 {
		t.Errorf("sub-general got %v, ownerless car must be dropped", got)
	}

	got = FilterResourcesByGeographicAccess(cars, locate, models.RoleAdmin, nil, nil)
	if len(got) != 3 {
		t.Errorf("admin got %d cars, want 3", len(got))
	}
}

func TestValidateGeneralAssignment(t *testing.T) {
	v := NewValidator(testTable(t))

	res := v.ValidateGeneralAssignment([]string{"North", "Mars", "South", "Venus"})
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if !reflect.DeepEqual(res.InvalidCities, []string{"Mars", "Venus"}) {
		t.Errorf("InvalidCities = %v", res.InvalidCities)
	}
	err := res.Err()
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Rule != RuleGeneralCities {
		t.Fatalf("Err() = %v", err)
	}
	if !strings.Contains(err.Error(), "North, South, East") {
		t.Errorf("message should list valid cities: %s", err)
	}

	ok := v.ValidateGeneralAssignment([]string{"East"})
	if !ok.Valid || ok.Err() != nil {
		t.Errorf("expected valid, got %+v", ok)
	}
	if empty := v.ValidateGeneralAssignment(nil); !empty.Valid {
		t.Error("empty assignment should be valid")
	}
}

func TestValidateSubGeneralToHRAssignment(t *testing.T) {
	v := NewValidator(region.Default())

	res := v.ValidateSubGeneralToHRAssignment([]string{"Surat (City)"}, []string{"Chorasi", "Gondal"})
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if !reflect.DeepEqual(res.InvalidTalukas, []string{"Gondal"}) {
		t.Errorf("InvalidTalukas = %v, want [Gondal]", res.InvalidTalukas)
	}

	res = v.ValidateSubGeneralToHRAssignment(
		[]string{"Ahmedabad (City)", "Surat (City)"},
		[]string{"Daskroi", "Chorasi", "Rajkot City"},
	)
	if res.Valid || !reflect.DeepEqual(res.InvalidTalukas, []string{"Rajkot City"}) {
		t.Errorf("got %+v, want only Rajkot City invalid", res)
	}

	res = v.ValidateSubGeneralToHRAssignment(nil, []string{"Chorasi", "Nowhere"})
	if !reflect.DeepEqual(res.InvalidTalukas, []string{"Chorasi", "Nowhere"}) {
		t.Errorf("no cities must reject everything, got %v", res.InvalidTalukas)
	}

	err := res.Err(RuleSubGeneralTaluka)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(ve.Error(), "(none)") {
		t.Errorf("message should show empty permitted set: %s", ve.Error())
	}
}

func TestValidateHRToFieldAssignment(t *testing.T) {
	v := NewValidator(testTable(t))
	hr := []string{"N1", "S2"}

	if c := v.ValidateHRToFieldAssignment(hr, "S2"); !c.Valid || c.Error != "" {
		t.Errorf("S2 should be valid, got %+v", c)
	}

	c := v.ValidateHRToFieldAssignment(hr, "E1")
	if c.Valid {
		t.Fatal("E1 should be invalid")
	}
	if !strings.Contains(c.Error, "N1, S2") {
		t.Errorf("error should enumerate permitted set, got %q", c.Error)
	}

	batch := v.ValidateHRToFieldAssignments(hr, []string{"E1", "N1", "S1"})
	if batch.Valid || !reflect.DeepEqual(batch.InvalidTalukas, []string{"E1", "S1"}) {
		t.Errorf("batch = %+v", batch)
	}
	if len(batch.Errors) != 2 {
		t.Errorf("expected one message per invalid taluka, got %v", batch.Errors)
	}
	if err := batch.Err(RuleHRFieldTaluka); err == nil || !strings.Contains(err.Error(), "E1") || !strings.Contains(err.Error(), "S1") {
		t.Errorf("aggregated error = %v", err)
	}
}

func TestWrapStore(t *testing.T) {
	if WrapStore("get", nil) != nil {
		t.Error("nil must stay nil")
	}
	if err := WrapStore("get", ErrNotFound); err != ErrNotFound {
		t.Errorf("sentinel rewrapped: %v", err)
	}
	if err := WrapStore("upsert", fmt.Errorf("cas: %w", ErrConflict)); !errors.Is(err, ErrConflict) {
		t.Errorf("conflict lost: %v", err)
	}

	base := errors.New("connection refused")
	err := WrapStore("delete", base)
	var se *StoreError
	if !errors.As(err, &se) || se.Op != "delete" || !errors.Is(err, base) {
		t.Errorf("WrapStore = %#v", err)
	}
	if again := WrapStore("outer", err); again != err {
		t.Error("StoreError wrapped twice")
	}
}
