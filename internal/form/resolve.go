package form

import (
	"context"
	"log/slog"
)

// Source is a remote table of field bindings, keyed by field name.
type Source interface {
	LoadFieldMappings(ctx context.Context) (map[string]string, error)
}

// Resolve layers the bindings: placeholder defaults, then the mapping file
// (if path is set), then src (if not nil). A broken file is an error; an
// unreachable or invalid src is logged and skipped.
func Resolve(ctx context.Context, submitURL, path string, src Source, logger *slog.Logger) (FieldMapping, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := DefaultMapping(submitURL)
	if path != "" {
		var err error
		if m, err = LoadMappingFile(path, m); err != nil {
			return FieldMapping{}, err
		}
		logger.Info("loaded form mapping file", "path", path)
	}

	if src != nil {
		remote, err := src.LoadFieldMappings(ctx)
		switch {
		case err != nil:
			logger.Warn("failed to load remote form mapping, keeping local one", "error", err)
		case len(remote) > 0:
			merged, err := m.With(remote)
			if err != nil {
				logger.Warn("ignoring invalid remote form mapping", "error", err)
				break
			}
			m = merged
			logger.Info("applied remote form mapping", "fields", len(remote))
		}
	}

	if m.Unconfigured() {
		logger.Warn("form entry IDs are placeholders, submissions will be simulated")
	}
	return m, nil
}

// Names returns the bindings keyed by field name, as stored remotely.
func (m FieldMapping) Names() map[string]string {
	out := make(map[string]string, len(m.entries))
	for f, id := range m.entries {
		out[string(f)] = id
	}
	return out
}
