package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is a preset file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var ErrNoFields = errors.New("preset file contains no fields")

// ParseFormat accepts json, yaml, yml or toml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("unsupported preset format %q", s)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

type presetFile struct {
	Fields []Field `json:"fields" yaml:"fields" toml:"fields"`
}

// EncodeFields writes fields as a preset document.
func EncodeFields(out io.Writer, fields []Field, format Format) error {
	doc := presetFile{Fields: fields}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(out).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported preset format %q", format)
}

// DecodeFields reads a preset document.
func DecodeFields(in io.Reader, format Format) ([]Field, error) {
	var doc presetFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(in).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(in).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(in).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported preset format %q", format)
	}
	if len(doc.Fields) == 0 {
		return nil, ErrNoFields
	}
	return doc.Fields, nil
}

// Export writes the current fields.
func (w *Workspace) Export(out io.Writer, format Format) error {
	return EncodeFields(out, w.Fields(), format)
}

// Import replaces every field with the ones read from in. Fields without an
// ID get a fresh one. Import is refused while any run is pending.
func (w *Workspace) Import(in io.Reader, format Format) (int, error) {
	fields, err := DecodeFields(in, format)
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range w.status {
		if s.State == RunPending {
			return 0, ErrRunInFlight
		}
	}

	w.state.Fields = normalizeFields(fields)
	w.status = make(map[string]Status)
	w.notifyLocked(SeveritySuccess, "", fmt.Sprintf("Imported %d fields", len(fields)))
	w.audit.LogImport(string(format), len(fields))
	return len(fields), w.saveLocked()
}
