package catalog

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/attune/internal/domain"
)

func TestDefault(t *testing.T) {
	c := Default()
	if c.Len() != 5 {
		t.Errorf("Len() = %d, want 5", c.Len())
	}

	for _, name := range []string{AcademicStress, EmotionalWellbeing, SocialConnection, PhysicalHealth, BehavioralEngagement} {
		def, err := c.Get(name)
		if err != nil {
			t.Errorf("Get(%q) error = %v", name, err)
			continue
		}
		if err := def.Validate(); err != nil {
			t.Errorf("built-in %q invalid: %v", name, err)
		}
	}
}

func TestDefault_Order(t *testing.T) {
	defs := Default().All()
	want := []string{AcademicStress, EmotionalWellbeing, SocialConnection, PhysicalHealth, BehavioralEngagement}
	if len(defs) != len(want) {
		t.Fatalf("All() returned %d definitions, want %d", len(defs), len(want))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("All()[%d] = %q, want %q", i, defs[i].Name, name)
		}
	}
}

func TestGet_Unknown(t *testing.T) {
	c := Default()
	if _, err := c.Get("shoe_size"); !errors.Is(err, domain.ErrIndicatorNotFound) {
		t.Errorf("Get() error = %v, want ErrIndicatorNotFound", err)
	}
}

func TestNew_Rejections(t *testing.T) {
	valid := domain.IndicatorDefinition{
		Name:       "mood",
		Factors:    []string{"f"},
		Thresholds: domain.Thresholds{Low: 30, Moderate: 50, High: 70},
	}

	tests := []struct {
		name string
		defs []domain.IndicatorDefinition
	}{
		{"empty catalog", nil},
		{"duplicate indicator", []domain.IndicatorDefinition{valid, valid}},
		{"missing name", []domain.IndicatorDefinition{{Factors: []string{"f"}, Thresholds: valid.Thresholds}}},
		{"no factors", []domain.IndicatorDefinition{{Name: "x", Thresholds: valid.Thresholds}}},
		{"inverted thresholds", []domain.IndicatorDefinition{{
			Name:       "x",
			Factors:    []string{"f"},
			Thresholds: domain.Thresholds{Low: 70, Moderate: 50, High: 30},
		}}},
		{"thresholds above range", []domain.IndicatorDefinition{{
			Name:       "x",
			Factors:    []string{"f"},
			Thresholds: domain.Thresholds{Low: 50, Moderate: 80, High: 120},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.defs); !errors.Is(err, domain.ErrInvalidCatalog) {
				t.Errorf("New() error = %v, want ErrInvalidCatalog", err)
			}
		})
	}
}

func TestDefinitions_IsACopy(t *testing.T) {
	c := Default()
	defs := c.Definitions()
	delete(defs, AcademicStress)

	if _, err := c.Get(AcademicStress); err != nil {
		t.Errorf("mutating the Definitions() map must not affect the catalog: %v", err)
	}
}
