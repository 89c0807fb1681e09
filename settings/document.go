package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// configVersion is written into every document this package creates.
const configVersion = 1

// versionField is the reserved document field holding the config version.
const versionField = "config_version"

// Document is one sparse settings file (global or project). Fields outside
// the schema are preserved across load/save so newer versions of nerv can
// add keys without older versions destroying them; they never resolve.
type Document struct {
	Version int
	fields  map[string]any
}

func newDocument() *Document {
	return &Document{Version: configVersion, fields: make(map[string]any)}
}

// lookup returns the value for key coerced to its declared kind. A missing
// key, or a stored value of the wrong shape, reports ok=false.
func (d *Document) lookup(key Key) (any, bool) {
	if d == nil {
		return nil, false
	}
	raw, ok := d.fields[string(key)]
	if !ok {
		return nil, false
	}
	return coerce(Schema[key], raw)
}

func (d *Document) set(key Key, value any) {
	d.fields[string(key)] = value
}

// unset removes key from the document, reporting whether it was present.
func (d *Document) unset(key Key) bool {
	if d == nil {
		return false
	}
	if _, ok := d.fields[string(key)]; !ok {
		return false
	}
	delete(d.fields, string(key))
	return true
}

// MarshalJSON serializes the document with its version field and every
// stored field, recognized or not.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}
	out[versionField] = d.Version
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object, splitting off the version field and
// keeping everything else verbatim.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	d.Version = configVersion
	if v, ok := raw[versionField].(float64); ok {
		d.Version = int(v)
	}
	delete(raw, versionField)
	d.fields = raw
	return nil
}

// loadDocument reads a settings document from disk. A missing, unreadable,
// or malformed file reports ok=false: that level defines nothing. Comments
// and trailing commas in the file are tolerated on read.
func loadDocument(path string) (*Document, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// saveDocument writes the whole document as pretty-printed JSON, creating
// parent directories as needed. This is a full rewrite of the file, so a
// concurrent writer's changes to other keys are lost (last writer wins).
func saveDocument(path string, doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
