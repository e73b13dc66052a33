// Package catalog loads the museum and theme dataset.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/mhpenta/museai"
	"gopkg.in/yaml.v3"
)

//go:embed museums.yaml
var defaultDataset []byte

var (
	ErrMuseumNotFound = errors.New("museum not found")
	ErrThemeNotFound  = errors.New("theme not found")
)

// Catalog is an ordered, read-only list of museums.
type Catalog struct {
	Museums []museai.Museum `yaml:"museums"`
}

// Default returns the embedded dataset.
func Default() (*Catalog, error) {
	return Parse(defaultDataset)
}

// Load reads a dataset file. An empty path yields the embedded dataset.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML dataset and checks that ids are present and unique.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Museums) == 0 {
		return errors.New("catalog has no museums")
	}
	museums := make(map[string]struct{}, len(c.Museums))
	for i, m := range c.Museums {
		if m.ID == "" || m.Name == "" {
			return fmt.Errorf("museum %d: id and name must not be empty", i)
		}
		if _, dup := museums[m.ID]; dup {
			return fmt.Errorf("duplicate museum id %q", m.ID)
		}
		museums[m.ID] = struct{}{}

		themes := make(map[string]struct{}, len(m.Themes))
		for j, t := range m.Themes {
			if t.ID == "" || t.Name == "" {
				return fmt.Errorf("museum %q theme %d: id and name must not be empty", m.ID, j)
			}
			if _, dup := themes[t.ID]; dup {
				return fmt.Errorf("museum %q: duplicate theme id %q", m.ID, t.ID)
			}
			themes[t.ID] = struct{}{}
		}
	}
	return nil
}

// Museum looks up a museum by id.
func (c *Catalog) Museum(id string) (museai.Museum, error) {
	for _, m := range c.Museums {
		if m.ID == id {
			return m, nil
		}
	}
	return museai.Museum{}, fmt.Errorf("%w: %q", ErrMuseumNotFound, id)
}

// Lookup returns the museum and one of its themes.
func (c *Catalog) Lookup(museumID, themeID string) (museai.Museum, museai.Theme, error) {
	m, err := c.Museum(museumID)
	if err != nil {
		return museai.Museum{}, museai.Theme{}, err
	}
	t, ok := m.Theme(themeID)
	if !ok {
		return museai.Museum{}, museai.Theme{}, fmt.Errorf("%w: %q in %q", ErrThemeNotFound, themeID, museumID)
	}
	return m, t, nil
}
