package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// FieldMappingTable holds one row per form field: the field name and the
// Google Form entry ID it binds to.
const FieldMappingTable = "form_field_mappings"

type MappingRepository interface {
	LoadFieldMappings(ctx context.Context) (map[string]string, error)
	SaveFieldMappings(ctx context.Context, entries map[string]string) error
}

type FieldMappingRow struct {
	Field   string `json:"field"`
	EntryID string `json:"entry_id"`
}

// decodeRows turns a PostgREST response into field -> entry ID. Rows with
// a blank field or entry ID are skipped; a later duplicate wins.
func decodeRows(data []byte) (map[string]string, error) {
	var rows []FieldMappingRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse field mappings: %w", err)
	}

	entries := make(map[string]string, len(rows))
	for _, row := range rows {
		field := strings.TrimSpace(row.Field)
		id := strings.TrimSpace(row.EntryID)
		if field == "" || id == "" {
			continue
		}
		entries[field] = id
	}
	return entries, nil
}

func encodeRows(entries map[string]string) []FieldMappingRow {
	rows := make([]FieldMappingRow, 0, len(entries))
	for field, id := range entries {
		rows = append(rows, FieldMappingRow{Field: field, EntryID: id})
	}
	return rows
}
