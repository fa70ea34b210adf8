// Package roster holds the fixed list of wanted persons a positive verdict can link to.
package roster

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var rosterYAML []byte

// Person is one wanted-person record. Records are immutable after load.
type Person struct {
	ID         int    `yaml:"id" json:"id"`
	FullName   string `yaml:"full_name" json:"full_name"`
	NationalID string `yaml:"national_id" json:"national_id"`
	Offense    string `yaml:"offense" json:"offense"`
	CaseFile   string `yaml:"case_file" json:"case_file"`
	Court      string `yaml:"court" json:"court"`
	IssuedOn   string `yaml:"issued_on" json:"issued_on"`
	Portrait   string `yaml:"portrait" json:"portrait"`
}

type rosterFile struct {
	Persons []Person `yaml:"persons"`
}

// Roster is a read-only collection of persons indexed by id and normalized name.
type Roster struct {
	persons []Person
	byID    map[int]int
	byName  map[string]int
}

var (
	defaultRoster *Roster
	defaultErr    error
	loadOnce      sync.Once
)

// Default returns the embedded roster, parsed once per process.
func Default() (*Roster, error) {
	loadOnce.Do(func() {
		defaultRoster, defaultErr = Parse(rosterYAML)
	})
	return defaultRoster, defaultErr
}

// Parse builds a roster from YAML. Duplicate ids are rejected.
func Parse(data []byte) (*Roster, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing roster: %w", err)
	}
	return New(file.Persons)
}

// New builds a roster from an explicit list of persons.
func New(persons []Person) (*Roster, error) {
	r := &Roster{
		persons: make([]Person, len(persons)),
		byID:    make(map[int]int, len(persons)),
		byName:  make(map[string]int, len(persons)),
	}
	copy(r.persons, persons)

	for i, p := range r.persons {
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate roster id %d", p.ID)
		}
		r.byID[p.ID] = i
		r.byName[NormalizePersonName(p.FullName)] = i
	}
	return r, nil
}

// All returns a copy of every person in roster order.
func (r *Roster) All() []Person {
	out := make([]Person, len(r.persons))
	copy(out, r.persons)
	return out
}

// Len returns the number of persons.
func (r *Roster) Len() int {
	return len(r.persons)
}

// At returns the person at position i in roster order.
func (r *Roster) At(i int) Person {
	return r.persons[i]
}

// ByID finds a person by id.
func (r *Roster) ByID(id int) (*Person, bool) {
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	p := r.persons[i]
	return &p, true
}

// ByName finds a person by name ignoring case, diacritics and dashes,
// so "juan-carlos mendoza rios" resolves to "Juan Carlos Mendoza Ríos".
func (r *Roster) ByName(name string) (*Person, bool) {
	i, ok := r.byName[NormalizePersonName(name)]
	if !ok {
		return nil, false
	}
	p := r.persons[i]
	return &p, true
}
