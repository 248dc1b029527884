package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Source yields the catalog in force. Implementations may return a new
// Version at any time; the engine drops its caches when that happens.
type Source interface {
	Load(ctx context.Context) (*Catalog, error)
}

// StaticSource always serves the built-in catalog.
type StaticSource struct {
	cat *Catalog
}

// NewStaticSource wraps cat, or Default() when cat is nil.
func NewStaticSource(cat *Catalog) *StaticSource {
	if cat == nil {
		cat = Default()
	}
	return &StaticSource{cat: cat}
}

func (s *StaticSource) Load(_ context.Context) (*Catalog, error) {
	return s.cat, nil
}

// FileSource reads a YAML catalog from disk on every Load, so edits take
// effect on the next tick.
type FileSource struct {
	Path string
}

func (s *FileSource) Load(_ context.Context) (*Catalog, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", s.Path, err)
	}
	return ParseYAML(raw)
}

// ParseYAML decodes a YAML catalog. Documents without a version get one
// derived from their content hash.
func ParseYAML(raw []byte) (*Catalog, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	// Round-trip through JSON so decimals decode from either YAML numbers
	// or quoted strings.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return decode(js, raw)
}

// ParseJSON decodes a JSON catalog document.
func ParseJSON(raw []byte) (*Catalog, error) {
	return decode(raw, raw)
}

func decode(js, original []byte) (*Catalog, error) {
	var cat Catalog
	if err := json.Unmarshal(js, &cat); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if cat.Version == "" {
		cat.Version = ContentVersion(original)
	}
	if cat.Pool == nil {
		cat.Pool = DefaultPool()
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// ContentVersion derives a version token from raw document bytes.
func ContentVersion(raw []byte) string {
	sum := sha256.Sum256(raw)
	return "sha-" + hex.EncodeToString(sum[:6])
}
