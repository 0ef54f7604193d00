// Package region holds the static City -> Taluka reference table that scopes
// every geographic assignment. The table is embedded at compile time and
// parsed once; a *Table is immutable and safe for concurrent readers.
package region

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed gujarat.yaml
var gujaratYAML []byte

// City is one entry of the reference table.
type City struct {
	Name    string   `yaml:"name" json:"name"`
	Talukas []string `yaml:"talukas" json:"talukas"`
}

type document struct {
	Cities []City `yaml:"cities"`
}

// Table is a parsed reference table with lookup indexes in both
// directions.
type Table struct {
	cities   []City
	byCity   map[string]int
	byTaluka map[string]string
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the embedded Gujarat table. It panics if the embedded
// file is malformed, which can only happen through a bad commit.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := Parse(gujaratYAML)
		if err != nil {
			panic(fmt.Sprintf("region: embedded table: %v", err))
		}
		defaultTable = t
	})
	return defaultTable
}

// Parse builds a Table from YAML. Blank names, duplicate cities and
// talukas listed under more than one city are rejected.
func Parse(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode region table: %w", err)
	}
	return New(doc.Cities)
}

// New builds a Table from already-decoded cities.
func New(cities []City) (*Table, error) {
	t := &Table{
		cities:   make([]City, 0, len(cities)),
		byCity:   make(map[string]int, len(cities)),
		byTaluka: make(map[string]string),
	}

	for _, c := range cities {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("city with empty name")
		}
		if _, dup := t.byCity[name]; dup {
			return nil, fmt.Errorf("duplicate city %q", name)
		}

		talukas := make([]string, 0, len(c.Talukas))
		for _, tk := range c.Talukas {
			tk = strings.TrimSpace(tk)
			if tk == "" {
				return nil, fmt.Errorf("city %q has an empty taluka", name)
			}
			if owner, dup := t.byTaluka[tk]; dup {
				return nil, fmt.Errorf("taluka %q listed under both %q and %q", tk, owner, name)
			}
			t.byTaluka[tk] = name
			talukas = append(talukas, tk)
		}

		t.byCity[name] = len(t.cities)
		t.cities = append(t.cities, City{Name: name, Talukas: talukas})
	}

	return t, nil
}

// Cities returns city names in table order.
func (t *Table) Cities() []string {
	out := make([]string, len(t.cities))
	for i, c := range t.cities {
		out[i] = c.Name
	}
	return out
}

// TalukasOf returns the talukas of city, or an empty slice when the city is
// unknown.
func (t *Table) TalukasOf(city string) []string {
	i, ok := t.byCity[city]
	if !ok {
		return []string{}
	}
	return append([]string(nil), t.cities[i].Talukas...)
}

// CityContainsTaluka reports whether taluka belongs to city.
func (t *Table) CityContainsTaluka(city, taluka string) bool {
	owner, ok := t.byTaluka[taluka]
	return ok && owner == city
}

// CityOfTaluka reports the city owning taluka.
func (t *Table) CityOfTaluka(taluka string) (string, bool) {
	city, ok := t.byTaluka[taluka]
	return city, ok
}

// AllTalukas flattens the table in city order, then taluka order.
func (t *Table) AllTalukas() []string {
	out := make([]string, 0, len(t.byTaluka))
	for _, c := range t.cities {
		out = append(out, c.Talukas...)
	}
	return out
}

// HasCity reports whether city is in the table.
func (t *Table) HasCity(city string) bool {
	_, ok := t.byCity[city]
	return ok
}

// HasTaluka reports whether taluka is in the table.
func (t *Table) HasTaluka(taluka string) bool {
	_, ok := t.byTaluka[taluka]
	return ok
}

// Snapshot returns a deep copy of the table contents.
func (t *Table) Snapshot() []City {
	out := make([]City, len(t.cities))
	for i, c := range t.cities {
		out[i] = City{Name: c.Name, Talukas: append([]string(nil), c.Talukas...)}
	}
	return out
}
