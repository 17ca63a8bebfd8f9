package voices

import (
	"errors"
	"testing"

	"github.com/dgnsrekt/shobdo/internal/ttypes"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if c.Len() != 6 {
		t.Errorf("Len() = %d, want 6", c.Len())
	}
	if c.First().ID != "nodi" {
		t.Errorf("First() = %q, want nodi", c.First().ID)
	}
	for _, v := range c.All() {
		if v.Name == "" || v.Tagline == "" || v.PrebuiltName == "" {
			t.Errorf("incomplete voice %+v", v)
		}
	}
}

func TestCatalogAllIsACopy(t *testing.T) {
	c := Default()
	all := c.All()
	all[0].Name = "changed"
	if c.First().Name == "changed" {
		t.Error("All() exposes internal storage")
	}
}

func TestGet(t *testing.T) {
	c := Default()

	v, err := c.Get(" Tanvir ")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.PrebuiltName != "Puck" {
		t.Errorf("PrebuiltName = %q, want Puck", v.PrebuiltName)
	}

	_, err = c.Get("nobody")
	if !errors.Is(err, ttypes.ErrUnknownVoice) {
		t.Errorf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestFind(t *testing.T) {
	c := Default()

	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr bool
	}{
		{"exact id", "rahim", "rahim", false},
		{"exact name", "shathi apa", "shathi", false},
		{"prebuilt name", "charon", "rahim", false},
		{"fuzzy", "tnvr", "tanvir", false},
		{"fuzzy prefix", "Sha", "shathi", false},
		{"empty", "  ", "", true},
		{"no match", "zzzzqqq", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Find(tt.query)
			if tt.wantErr {
				if !errors.Is(err, ttypes.ErrUnknownVoice) {
					t.Errorf("expected ErrUnknownVoice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Find(%q) failed: %v", tt.query, err)
			}
			if v.ID != tt.wantID {
				t.Errorf("Find(%q) = %q, want %q", tt.query, v.ID, tt.wantID)
			}
		})
	}
}

func TestNewCatalogValidation(t *testing.T) {
	tests := []struct {
		name   string
		voices []Voice
	}{
		{"empty", nil},
		{"missing id", []Voice{{Name: "x", PrebuiltName: "Kore"}}},
		{"missing prebuilt", []Voice{{ID: "x"}}},
		{"duplicate", []Voice{{ID: "a", PrebuiltName: "Kore"}, {ID: "A", PrebuiltName: "Puck"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.voices); err == nil {
				t.Error("expected error")
			}
		})
	}
}
