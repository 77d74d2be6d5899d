package fieldregistry

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"customizer_telemetry/internal/domain/field"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ListRegisteredTypes_OrderAndDuplicates(t *testing.T) {
	r := New()
	require.NoError(t, r.AddField(field.Field{ID: "a", Type: "color"}))
	require.NoError(t, r.AddField(field.Field{ID: "b", Type: "text"}))
	require.NoError(t, r.AddField(field.Field{ID: "c", Type: "color"}))
	require.NoError(t, r.AddField(field.Field{ID: "d"})) // no type

	assert.Equal(t, []string{"color", "text", "color"}, r.ListRegisteredTypes())
}

func TestRegistry_ReAddKeepsPosition(t *testing.T) {
	r := New()
	require.NoError(t, r.AddField(field.Field{ID: "a", Type: "color"}))
	require.NoError(t, r.AddField(field.Field{ID: "b", Type: "text"}))
	require.NoError(t, r.AddField(field.Field{ID: "a", Type: "slider"}))

	assert.Equal(t, []string{"slider", "text"}, r.ListRegisteredTypes())
	assert.Len(t, r.Fields(), 2)
}

func TestRegistry_EmptyID(t *testing.T) {
	r := New()
	assert.ErrorIs(t, r.AddField(field.Field{Type: "text"}), ErrEmptyID)
	assert.ErrorIs(t, r.AddSection(field.Section{}), ErrEmptyID)
	assert.ErrorIs(t, r.AddPanel(field.Panel{}), ErrEmptyID)
}

func TestRegistry_EmptyListIsNotNil(t *testing.T) {
	assert.NotNil(t, New().ListRegisteredTypes())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = r.AddField(field.Field{ID: string(rune('a' + i)), Type: "text"})
		}(i)
		go func() {
			defer wg.Done()
			_ = r.ListRegisteredTypes()
		}()
	}
	wg.Wait()
	assert.Len(t, r.ListRegisteredTypes(), 20)
}

const yamlSchema = `
default_panel: demo_panel
panels:
  - id: demo_panel
    title: Demo Panel
    priority: 10
sections:
  - id: color_section
    title: Color
  - id: pro_test
    title: Test Link Section
    type: link
    panel: ""
fields:
  - id: color_setting_hex
    type: color
    section: color_section
    default: "#0088CC"
  - id: text_setting
    type: text
    section: color_section
  - id: color_setting_rgba
    type: color
    section: color_section
`

const tomlSchema = `
default_panel = "demo_panel"

[[panels]]
id = "demo_panel"
title = "Demo Panel"

[[sections]]
id = "slider_section"
title = "Slider"

[[fields]]
id = "slider_setting"
type = "slider"
section = "slider_section"
default = 5

[[fields]]
id = "switch_setting"
type = "switch"
section = "slider_section"
`

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(yamlSchema), "yaml")
	require.NoError(t, err)

	r := New()
	require.NoError(t, doc.Apply(r))
	assert.Equal(t, []string{"color", "text", "color"}, r.ListRegisteredTypes())

	sections := r.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, "demo_panel", sections[0].Panel)
	assert.Equal(t, "link", sections[1].Type)
	require.Len(t, r.Panels(), 1)
	assert.Equal(t, 10, r.Panels()[0].Priority)
}

func TestParse_TOML(t *testing.T) {
	doc, err := Parse([]byte(tomlSchema), "toml")
	require.NoError(t, err)

	r := New()
	require.NoError(t, doc.Apply(r))
	assert.Equal(t, []string{"slider", "switch"}, r.ListRegisteredTypes())
	assert.Equal(t, "demo_panel", r.Sections()[0].Panel)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("fields: ["), "yaml")
	assert.Error(t, err)

	_, err = Parse([]byte("x"), "json")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	doc, err := Parse([]byte("   \n"), "yaml")
	require.NoError(t, err)
	assert.Empty(t, doc.Fields)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlSchema), 0o644))
	r, err := LoadFile(yamlPath)
	require.NoError(t, err)
	assert.Len(t, r.Fields(), 3)

	tomlPath := filepath.Join(dir, "fields.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(tomlSchema), 0o644))
	r, err = LoadFile(tomlPath)
	require.NoError(t, err)
	assert.Len(t, r.Fields(), 2)
}

func TestLoadFile_MissingFileIsEmpty(t *testing.T) {
	r, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, r.ListRegisteredTypes())

	r, err = LoadFile("")
	require.NoError(t, err)
	assert.Empty(t, r.Fields())
}

func TestLoadFile_RejectsEmptyIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - type: text\n"), 0o644))
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestLoadFile_UnknownExtension(t *testing.T) {
	_, err := LoadFile("fields.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoadFile_ShippedDemoSchema(t *testing.T) {
	r, err := LoadFile(filepath.Join("..", "..", "..", "configs", "fields.yaml"))
	require.NoError(t, err)
	types := r.ListRegisteredTypes()
	require.NotEmpty(t, types)
	assert.Contains(t, types, "typography")
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - {id: a, type: color}\n"), 0o600))

	r, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"color"}, r.ListRegisteredTypes())

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	w, err := NewWatcher(r, path, 20*time.Millisecond, logrus.NewEntry(logger))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - {id: a, type: color}\n  - {id: b, type: radio}\n"), 0o600))

	assert.Eventually(t, func() bool {
		return len(r.Fields()) == 2
	}, 5*time.Second, 10*time.Millisecond, "schema was not reloaded")
	assert.Equal(t, []string{"color", "radio"}, r.ListRegisteredTypes())
}

func TestWatcher_KeepsSchemaOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fields.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  - {id: a, type: color}\n"), 0o600))
	r, err := LoadFile(path)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	w, err := NewWatcher(r, path, time.Millisecond, logrus.NewEntry(logger))
	require.NoError(t, err)
	defer w.watcher.Close()

	require.NoError(t, os.WriteFile(path, []byte("fields: [ {id: , type"), 0o600))
	w.reload()
	assert.Equal(t, []string{"color"}, r.ListRegisteredTypes())

	require.NoError(t, os.Remove(path))
	w.reload()
	assert.Equal(t, []string{"color"}, r.ListRegisteredTypes())
}

func TestNewWatcher_UnknownFormat(t *testing.T) {
	_, err := NewWatcher(New(), filepath.Join(t.TempDir(), "fields.ini"), time.Millisecond, logrus.NewEntry(logrus.New()))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
