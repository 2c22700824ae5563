package itp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildgrid/sitewise/models"
)

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const concreteYAML = `name: Concrete Pour ITP
trade: concrete
items:
  - key: formwork
    description: Formwork inspected and signed off
    severity: high
  - key: cure-log
    description: Curing log started
`

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid template", func(t *testing.T) {
		path := writeTemplate(t, dir, "concrete.yaml", concreteYAML)
		tpl, err := LoadFile(path)
		require.NoError(t, err)

		assert.Equal(t, "Concrete Pour ITP", tpl.Name)
		assert.Equal(t, "concrete", tpl.Trade)
		assert.Equal(t, "file", tpl.Source)

		items := tpl.Checklist()
		require.Len(t, items, 2)
		assert.Equal(t, "formwork", items[0].Key)
		assert.Equal(t, models.SeverityHigh, items[0].Severity)
		// Missing severity defaults to medium.
		assert.Equal(t, models.SeverityMedium, items[1].Severity)
	})

	t.Run("missing name", func(t *testing.T) {
		path := writeTemplate(t, dir, "noname.yaml", "trade: concrete\nitems:\n  - key: a\n")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no name")
	})

	t.Run("no items", func(t *testing.T) {
		path := writeTemplate(t, dir, "empty.yaml", "name: Empty\n")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no items")
	})

	t.Run("item without key", func(t *testing.T) {
		path := writeTemplate(t, dir, "nokey.yaml", "name: Broken\nitems:\n  - description: no key here\n")
		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no key")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeTemplate(t, dir, "bad.yaml", "name: [unclosed\n")
		_, err := LoadFile(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "concrete.yaml", concreteYAML)
	writeTemplate(t, dir, "general.yml", "name: General Handover\nitems:\n  - key: photos\n    description: Completion photos uploaded\n")
	writeTemplate(t, dir, "broken.yaml", "items:\n  - key: orphan\n")
	writeTemplate(t, dir, "notes.txt", "not a template")

	templates, errs := LoadDir(dir)
	require.Len(t, templates, 2)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "has no name")

	names := []string{templates[0].Name, templates[1].Name}
	assert.ElementsMatch(t, []string{"Concrete Pour ITP", "General Handover"}, names)

	t.Run("missing dir", func(t *testing.T) {
		templates, errs := LoadDir(filepath.Join(dir, "nowhere"))
		assert.Nil(t, templates)
		require.Len(t, errs, 1)
	})
}
