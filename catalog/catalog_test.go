package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, c.Museums)

	m, theme, err := c.Lookup("louvre", "renaissance")
	require.NoError(t, err)
	assert.Equal(t, "The Louvre", m.Name)
	assert.Equal(t, "Renaissance Classicism", theme.Name)
	assert.NotEmpty(t, theme.Vibe)
	assert.Contains(t, theme.ExamplePrompts, "a cat wearing a crown")
}

func TestLookupErrors(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, _, err = c.Lookup("prado", "renaissance")
	assert.ErrorIs(t, err, ErrMuseumNotFound)

	_, _, err = c.Lookup("louvre", "cubism")
	assert.ErrorIs(t, err, ErrThemeNotFound)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "empty", yaml: "museums: []"},
		{name: "malformed", yaml: "museums: ["},
		{name: "missing id", yaml: "museums:\n  - name: Tate\n"},
		{name: "duplicate museum", yaml: "museums:\n  - {id: tate, name: Tate}\n  - {id: tate, name: Tate Modern}\n"},
		{name: "duplicate theme", yaml: "museums:\n  - id: tate\n    name: Tate\n    themes:\n      - {id: a, name: A}\n      - {id: a, name: B}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "museums.yaml")
	data := "museums:\n  - id: tate\n    name: Tate Modern\n    themes:\n      - id: abstract\n        name: Abstract Expressionism\n        vibe: raw\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	_, theme, err := c.Lookup("tate", "abstract")
	require.NoError(t, err)
	assert.Equal(t, "raw", theme.Vibe)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	c, err = Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Museums)
}
