package form

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanoskov/formbot/internal/model"
)

type stubSource struct {
	entries map[string]string
	err     error
}

func (s stubSource) LoadFieldMappings(context.Context) (map[string]string, error) {
	return s.entries, s.err
}

const testSubmitURL = "https://docs.google.com/forms/d/e/abc/formResponse"

func TestResolveDefaults(t *testing.T) {
	m, err := Resolve(context.Background(), testSubmitURL, "", nil, nil)
	require.NoError(t, err)
	assert.True(t, m.Unconfigured())
	assert.Equal(t, testSubmitURL, m.SubmitURL)
}

func TestResolveLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fields:\n  type: entry.1\n  amount: entry.2\n"), 0o600))

	src := stubSource{entries: map[string]string{"amount": "entry.20", "data": "entry.50"}}
	m, err := Resolve(context.Background(), testSubmitURL, path, src, nil)
	require.NoError(t, err)

	assert.False(t, m.Unconfigured())
	assert.Equal(t, "entry.1", m.Entry(model.FieldType))
	assert.Equal(t, "entry.20", m.Entry(model.FieldAmount))
	assert.Equal(t, "entry.50", m.Entry(model.FieldDate))
	assert.Equal(t, "entry.1230000003", m.Entry(model.FieldCategory))
}

func TestResolveRemoteFailureKeepsLocal(t *testing.T) {
	for name, src := range map[string]stubSource{
		"unreachable":   {err: errors.New("connection refused")},
		"unknown field": {entries: map[string]string{"colour": "entry.9"}},
	} {
		t.Run(name, func(t *testing.T) {
			m, err := Resolve(context.Background(), testSubmitURL, "", src, nil)
			require.NoError(t, err)
			assert.Equal(t, DefaultMapping(testSubmitURL).Entries(), m.Entries())
		})
	}
}

func TestResolveBrokenFile(t *testing.T) {
	_, err := Resolve(context.Background(), testSubmitURL, filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err = Resolve(context.Background(), testSubmitURL, path, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedMappingFormat)
}

func TestNames(t *testing.T) {
	names := DefaultMapping("").Names()
	assert.Len(t, names, len(model.Fields))
	assert.Equal(t, "entry.1230000002", names["amount"])
}
