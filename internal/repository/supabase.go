package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supabase-community/supabase-go"
)

type SupabaseRepository struct {
	client *supabase.Client
	logger *slog.Logger
}

func NewSupabaseRepository(url, key string, logger *slog.Logger) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &SupabaseRepository{
		client: client,
		logger: logger,
	}, nil
}

// LoadFieldMappings reads the whole mapping table.
func (r *SupabaseRepository) LoadFieldMappings(ctx context.Context) (map[string]string, error) {
	data, count, err := r.client.From(FieldMappingTable).
		Select("field,entry_id", "exact", false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get field mappings: %w", err)
	}
	r.logger.DebugContext(ctx, "loaded field mappings", "table", FieldMappingTable, "rows", count)

	return decodeRows(data)
}

// SaveFieldMappings upserts one row per field.
func (r *SupabaseRepository) SaveFieldMappings(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	_, count, err := r.client.From(FieldMappingTable).
		Insert(encodeRows(entries), true, "field", "minimal", "exact").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to save field mappings: %w", err)
	}
	r.logger.InfoContext(ctx, "saved field mappings", "table", FieldMappingTable, "rows", count)
	return nil
}
