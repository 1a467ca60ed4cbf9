package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// PutJSON encodes v as indented JSON and uploads it to path.
func PutJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", path, err)
	}
	return s.Upload(ctx, path, bytes.NewReader(data))
}

// GetJSON downloads path and decodes it into v.
func GetJSON(ctx context.Context, s Storage, path string, v any) error {
	rc, err := s.Download(ctx, path)
	if err != nil {
		return err
	}
	defer rc.Close() //nolint:errcheck // read-only
	if err := json.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("storage: decode %s: %w", path, err)
	}
	return nil
}
