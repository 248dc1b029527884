package store

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/corpgame/econ-engine/internal/model"
)

// Fixture seeds a MemoryStore from a YAML or JSON document.
type Fixture struct {
	Corporations []model.Corporation      `json:"corporations"`
	Holdings     []model.MarketEntry      `json:"holdings"`
	Trades       []model.ShareTransaction `json:"trades"`
}

// ParseFixture decodes a fixture document. JSON is valid YAML, so both
// formats are accepted.
func ParseFixture(raw []byte) (*Fixture, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	// Round-trip through JSON so decimals decode from numbers or strings.
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(js, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for _, h := range f.Holdings {
		if h.CorporationID == "" || h.Sector == "" {
			return nil, fmt.Errorf("parse fixture: holding needs corporation_id and sector")
		}
	}
	return &f, nil
}

// Seed loads every fixture row into the store.
func (s *MemoryStore) Seed(f *Fixture) {
	for i := range f.Corporations {
		s.PutCorporation(&f.Corporations[i])
	}
	for _, h := range f.Holdings {
		s.AddUnits(h.CorporationID, h.Region, h.Sector, h.Units)
	}
	for _, tx := range f.Trades {
		s.RecordTrade(tx)
	}
}
