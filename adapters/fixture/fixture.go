// Package fixture is a PartSource over a static YAML catalog.
//
//	parts:
//	  - id: rtx-4070
//	    name: RTX 4070
//	    brand: NVIDIA
//	    category: gpu
//	    price: 599
//	    currency: USD
//	    specifications:
//	      memory: {number: 12, unit: GB}
//	      bus: {text: PCIe 4.0}
//
// Search matches every query word against name, brand and ID, case
// insensitively. It is meant for local development and as a last-resort
// source behind the network adapters.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/partsource/provider"
)

// ErrDuplicateID is returned when two parts share an ID.
var ErrDuplicateID = errors.New("fixture: duplicate part id")

type document struct {
	Parts []provider.NormalizedResult `yaml:"parts"`
}

// Source implements provider.PartSource.
type Source struct {
	parts []provider.NormalizedResult
	byID  map[string]int
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse reads a catalog from YAML. Unknown keys are rejected.
func Parse(data []byte) (*Source, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	return New(doc.Parts...)
}

// New creates a Source over parts. Parts without an ID get their
// lower-cased name as ID.
func New(parts ...provider.NormalizedResult) (*Source, error) {
	s := &Source{
		parts: make([]provider.NormalizedResult, 0, len(parts)),
		byID:  make(map[string]int, len(parts)),
	}
	for _, p := range parts {
		if p.ID == "" {
			p.ID = strings.ToLower(strings.Join(strings.Fields(p.Name), "-"))
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
		}
		s.byID[p.ID] = len(s.parts)
		s.parts = append(s.parts, p)
	}
	return s, nil
}

// Len returns the number of parts in the catalog.
func (s *Source) Len() int { return len(s.parts) }

// IsAvailable reports whether the catalog has any parts.
func (s *Source) IsAvailable(context.Context) bool {
	return len(s.parts) > 0
}

// SearchParts implements provider.PartSource.
func (s *Source) SearchParts(ctx context.Context, query, category string, limit int) ([]provider.NormalizedResult, error) {
	words := strings.Fields(strings.ToLower(query))
	out := []provider.NormalizedResult{}
	for _, p := range s.parts {
		if limit > 0 && len(out) == limit {
			break
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if matches(p, words) {
			out = append(out, p)
		}
	}
	return out, ctx.Err()
}

// GetPartDetails implements provider.PartSource.
func (s *Source) GetPartDetails(ctx context.Context, id string) (provider.NormalizedResult, error) {
	i, ok := s.byID[id]
	if !ok {
		return provider.NormalizedResult{}, provider.Errorf(provider.KindNotFound, "fixture: no part %q", id)
	}
	return s.parts[i], nil
}

func matches(p provider.NormalizedResult, words []string) bool {
	hay := strings.ToLower(p.ID + " " + p.Name + " " + p.Brand)
	for _, w := range words {
		if !strings.Contains(hay, w) {
			return false
		}
	}
	return true
}

var _ provider.PartSource = (*Source)(nil)
