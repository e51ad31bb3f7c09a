package form

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/formbot/internal/model"
)

func TestDefaultMappingIsUnconfigured(t *testing.T) {
	m := DefaultMapping("https://example.com/formResponse")

	assert.True(t, m.Unconfigured())
	for _, f := range model.Fields {
		assert.Contains(t, m.Entry(f), PlaceholderPrefix)
	}
}

func TestMappingWith(t *testing.T) {
	base := DefaultMapping("u")

	m, err := base.With(map[string]string{"valor": "entry.1144554732"})
	require.NoError(t, err)

	assert.Equal(t, "entry.1144554732", m.Entry(model.FieldAmount))
	assert.False(t, m.Unconfigured(), "one real entry is enough to submit for real")
	assert.True(t, base.Unconfigured(), "base mapping must not change")

	_, err = base.With(map[string]string{"nope": "entry.1"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestLoadMappingFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "mapping.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
submit_url: https://docs.google.com/forms/d/e/abc/formResponse
fields:
  type: entry.66743101
  amount: entry.1144554732
  categoria: entry.1201304056
`), 0o600))

	m, err := LoadMappingFile(yamlPath, DefaultMapping("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "https://docs.google.com/forms/d/e/abc/formResponse", m.SubmitURL)
	assert.Equal(t, "entry.66743101", m.Entry(model.FieldType))
	assert.Equal(t, "entry.1201304056", m.Entry(model.FieldCategory))
	assert.Contains(t, m.Entry(model.FieldDate), PlaceholderPrefix)

	tomlPath := filepath.Join(dir, "mapping.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[fields]
description = "entry.101816972"
date = "entry.385057229"
`), 0o600))

	m, err = LoadMappingFile(tomlPath, DefaultMapping("base"))
	require.NoError(t, err)
	assert.Equal(t, "base", m.SubmitURL)
	assert.Equal(t, "entry.101816972", m.Entry(model.FieldDescription))
	assert.Equal(t, "entry.385057229", m.Entry(model.FieldDate))

	_, err = LoadMappingFile(filepath.Join(dir, "mapping.json"), DefaultMapping(""))
	assert.Error(t, err)

	jsonPath := filepath.Join(dir, "present.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{}`), 0o600))
	_, err = LoadMappingFile(jsonPath, DefaultMapping(""))
	assert.ErrorIs(t, err, ErrUnsupportedMappingFormat)
}

func TestWriteMappingFileIsLoadable(t *testing.T) {
	m := NewMapping("https://example.com/formResponse", map[model.Field]string{
		model.FieldType: "entry.1",
		model.FieldDate: "entry.5",
	})

	var buf bytes.Buffer
	require.NoError(t, WriteMappingFile(&buf, m))

	path := filepath.Join(t.TempDir(), "out.yml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	loaded, err := LoadMappingFile(path, NewMapping("", nil))
	require.NoError(t, err)
	assert.Equal(t, m.Entries(), loaded.Entries())
	assert.Equal(t, m.SubmitURL, loaded.SubmitURL)
}

func TestSubmitURLFromFormURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{
			"https://docs.google.com/forms/d/e/1FAIpQ/viewform?usp=header",
			"https://docs.google.com/forms/d/e/1FAIpQ/formResponse",
		},
		{
			"https://docs.google.com/forms/d/e/1FAIpQ/viewform/",
			"https://docs.google.com/forms/d/e/1FAIpQ/formResponse",
		},
		{
			"https://docs.google.com/forms/d/e/1FAIpQ/formResponse",
			"https://docs.google.com/forms/d/e/1FAIpQ/formResponse",
		},
		{
			"https://docs.google.com/forms/d/e/1FAIpQ",
			"https://docs.google.com/forms/d/e/1FAIpQ/formResponse",
		},
		{"not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SubmitURLFromFormURL(tt.input))
		})
	}
}
