package fixture

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jonwraymond/partsource/provider"
)

func load(t *testing.T) *Source {
	t.Helper()
	s, err := Load("testdata/parts.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func ids(results []provider.NormalizedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestLoad(t *testing.T) {
	s := load(t)

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	got, err := s.GetPartDetails(context.Background(), "rtx-4070")
	if err != nil {
		t.Fatalf("GetPartDetails() error = %v", err)
	}
	if got.Specifications["memory"].String() != "12 GB" {
		t.Errorf("memory = %q, want 12 GB", got.Specifications["memory"].String())
	}
	if got.Specifications["bus"].String() != "PCIe 4.0" {
		t.Errorf("bus = %q, want PCIe 4.0", got.Specifications["bus"].String())
	}
}

func TestSearchParts(t *testing.T) {
	s := load(t)

	tests := []struct {
		name     string
		query    string
		category string
		limit    int
		want     []string
	}{
		{"by brand", "amd", "", 10, []string{"rx-7800-xt", "ryzen-7-7700x"}},
		{"by brand and category", "AMD", "CPU", 10, []string{"ryzen-7-7700x"}},
		{"all words must match", "rtx 4070", "", 10, []string{"rtx-4070"}},
		{"no match", "arc a770", "", 10, []string{}},
		{"empty query", "", "gpu", 10, []string{"rtx-4070", "rx-7800-xt"}},
		{"limit", "", "", 1, []string{"rtx-4070"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchParts(context.Background(), tt.query, tt.category, tt.limit)
			if err != nil {
				t.Fatalf("SearchParts() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("SearchParts() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetPartDetails_NotFound(t *testing.T) {
	_, err := load(t).GetPartDetails(context.Background(), "nope")
	if !errors.Is(err, provider.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"duplicate id", "parts:\n  - {id: a, name: A}\n  - {id: a, name: B}\n", ErrDuplicateID},
		{"unknown field", "parts:\n  - {id: a, colour: red}\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() error = nil")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsAvailable(t *testing.T) {
	empty, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if empty.IsAvailable(context.Background()) {
		t.Error("empty catalog reports available")
	}
	if !load(t).IsAvailable(context.Background()) {
		t.Error("loaded catalog reports unavailable")
	}
}
