// Package roster resolves professional ids against the roster published by
// the user-management collaborator. The roster is a YAML file:
//
//	professionals:
//	  - id: 3f9c...
//	    name: Ana Pérez
//	    email: ana@example.org
package roster

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Professional is one entry of the roster.
type Professional struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Email string `yaml:"email,omitempty" json:"email,omitempty"`
}

type file struct {
	Professionals []Professional `yaml:"professionals"`
}

// Directory is an immutable, in-memory roster.
type Directory struct {
	byID  map[string]Professional
	order []Professional
}

// Load reads the roster at path. An empty path yields an empty directory.
func Load(path string) (*Directory, error) {
	if path == "" {
		return New(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML roster document.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	return New(f.Professionals)
}

// New builds a directory from a list, rejecting blank or duplicate ids.
func New(list []Professional) (*Directory, error) {
	d := &Directory{byID: make(map[string]Professional, len(list))}
	for i, p := range list {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("roster entry %d has no id", i)
		}
		if _, dup := d.byID[p.ID]; dup {
			return nil, fmt.Errorf("roster id %q listed twice", p.ID)
		}
		d.byID[p.ID] = p
		d.order = append(d.order, p)
	}
	slices.SortFunc(d.order, func(a, b Professional) int { return strings.Compare(a.Name, b.Name) })
	return d, nil
}

// Lookup reports whether id is a rostered professional.
func (d *Directory) Lookup(_ context.Context, id string) (Professional, bool, error) {
	p, ok := d.byID[id]
	return p, ok, nil
}

// List returns every professional ordered by name.
func (d *Directory) List(_ context.Context) ([]Professional, error) {
	return slices.Clone(d.order), nil
}
