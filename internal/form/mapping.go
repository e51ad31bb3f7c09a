// Package form maps collected records onto a Google Form and submits them.
package form

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/ivanoskov/formbot/internal/model"
)

// PlaceholderPrefix marks a destination identifier that was never configured.
const PlaceholderPrefix = "entry.123"

var (
	ErrUnknownField             = errors.New("unknown form field")
	ErrUnsupportedMappingFormat = errors.New("unsupported mapping file format")
)

// legacy field names accepted in mapping sources
var fieldAliases = map[string]model.Field{
	"tipo_lancamento": model.FieldType,
	"valor":           model.FieldAmount,
	"categoria":       model.FieldCategory,
	"descricao":       model.FieldDescription,
	"data":            model.FieldDate,
}

// FieldMapping binds each logical field to a form entry identifier and holds
// the URL the form is submitted to. It is read-only once loaded; With returns
// a modified copy.
type FieldMapping struct {
	entries   map[model.Field]string
	SubmitURL string
}

// DefaultMapping returns a mapping where every field is still a placeholder.
func DefaultMapping(submitURL string) FieldMapping {
	entries := make(map[model.Field]string, len(model.Fields))
	for i, f := range model.Fields {
		entries[f] = fmt.Sprintf("%s00000%02d", PlaceholderPrefix, i+1)
	}
	return FieldMapping{entries: entries, SubmitURL: submitURL}
}

// NewMapping builds a mapping from explicit entries.
func NewMapping(submitURL string, entries map[model.Field]string) FieldMapping {
	m := FieldMapping{entries: make(map[model.Field]string, len(entries)), SubmitURL: submitURL}
	for f, id := range entries {
		m.entries[f] = id
	}
	return m
}

// Entry returns the destination identifier of f, or "" if unmapped.
func (m FieldMapping) Entry(f model.Field) string {
	return m.entries[f]
}

// Entries returns a copy of all bindings.
func (m FieldMapping) Entries() map[model.Field]string {
	out := make(map[model.Field]string, len(m.entries))
	for f, id := range m.entries {
		out[f] = id
	}
	return out
}

// Unconfigured reports whether every binding still carries the placeholder prefix.
func (m FieldMapping) Unconfigured() bool {
	for _, id := range m.entries {
		if !strings.HasPrefix(id, PlaceholderPrefix) {
			return false
		}
	}
	return true
}

// With returns a copy with the given bindings overridden. Keys may be logical
// names ("amount") or the legacy Portuguese ones ("valor").
func (m FieldMapping) With(overrides map[string]string) (FieldMapping, error) {
	out := NewMapping(m.SubmitURL, m.entries)
	for name, id := range overrides {
		f, err := ParseField(name)
		if err != nil {
			return FieldMapping{}, err
		}
		out.entries[f] = strings.TrimSpace(id)
	}
	return out, nil
}

// ParseField resolves a field name from a mapping source.
func ParseField(name string) (model.Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, f := range model.Fields {
		if string(f) == name {
			return f, nil
		}
	}
	if f, ok := fieldAliases[name]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// mappingFile is the on-disk mapping format, shared by YAML and TOML.
type mappingFile struct {
	SubmitURL string            `yaml:"submit_url,omitempty" toml:"submit_url"`
	Fields    map[string]string `yaml:"fields" toml:"fields"`
}

// LoadMappingFile overlays the bindings found in path on base. The format is
// picked from the extension: .yaml, .yml or .toml.
func LoadMappingFile(path string, base FieldMapping) (FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var file mappingFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".toml":
		err = toml.Unmarshal(data, &file)
	default:
		return FieldMapping{}, fmt.Errorf("%w: %s", ErrUnsupportedMappingFormat, path)
	}
	if err != nil {
		return FieldMapping{}, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}

	m, err := base.With(file.Fields)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("mapping file %s: %w", path, err)
	}
	if file.SubmitURL != "" {
		m.SubmitURL = file.SubmitURL
	}
	return m, nil
}

// WriteMappingFile writes m as YAML in the format LoadMappingFile reads.
func WriteMappingFile(w io.Writer, m FieldMapping) error {
	file := mappingFile{SubmitURL: m.SubmitURL, Fields: make(map[string]string, len(m.entries))}
	for f, id := range m.entries {
		file.Fields[string(f)] = id
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("failed to encode mapping: %w", err)
	}
	return enc.Close()
}

// SubmitURLFromFormURL derives the formResponse endpoint from a form view URL.
func SubmitURLFromFormURL(formURL string) string {
	u, err := url.Parse(formURL)
	if err != nil || u.Host == "" {
		return ""
	}
	u.RawQuery = ""
	u.Fragment = ""

	p := strings.TrimSuffix(u.Path, "/")
	switch {
	case strings.HasSuffix(p, "/viewform"):
		p = strings.TrimSuffix(p, "/viewform") + "/formResponse"
	case strings.HasSuffix(p, "/formResponse"):
	default:
		p += "/formResponse"
	}
	u.Path = p
	return u.String()
}
