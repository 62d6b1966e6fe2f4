package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ReadJSON decodes a single JSON value from r into v.
// ReadJSON does not close r.
func ReadJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ImportJSON reads a JSON file at path into v.
//
// The returned error wraps the underlying cause with the file path, so
// os.IsNotExist / errors.Is(err, fs.ErrNotExist) still work for callers
// that treat a missing file specially.
func ImportJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := ReadJSON(f, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
