package catalog

import (
	"fmt"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// Catalog is an immutable registry of indicator definitions. It is built
// once at startup and injected into the engine; there is no process-wide
// mutable singleton, so tests can substitute alternate threshold tables.
type Catalog struct {
	order []string
	defs  map[string]domain.IndicatorDefinition
}

// New builds a catalog from definitions, preserving their order.
func New(defs []domain.IndicatorDefinition) (*Catalog, error) {
	c := &Catalog{
		defs: make(map[string]domain.IndicatorDefinition, len(defs)),
	}
	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.defs[def.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate indicator %q", domain.ErrInvalidCatalog, def.Name)
		}
		c.order = append(c.order, def.Name)
		c.defs[def.Name] = def
	}
	if len(c.order) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", domain.ErrInvalidCatalog)
	}
	return c, nil
}

// Get returns the definition for an indicator name.
func (c *Catalog) Get(name string) (domain.IndicatorDefinition, error) {
	def, ok := c.defs[name]
	if !ok {
		return domain.IndicatorDefinition{}, fmt.Errorf("%w: %q", domain.ErrIndicatorNotFound, name)
	}
	return def, nil
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []domain.IndicatorDefinition {
	defs := make([]domain.IndicatorDefinition, 0, len(c.order))
	for _, name := range c.order {
		defs = append(defs, c.defs[name])
	}
	return defs
}

// Definitions returns a name-keyed view for the classifier and planner.
func (c *Catalog) Definitions() map[string]domain.IndicatorDefinition {
	defs := make(map[string]domain.IndicatorDefinition, len(c.defs))
	for name, def := range c.defs {
		defs[name] = def
	}
	return defs
}

// Len returns the number of indicators in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

// Default returns the built-in indicator set.
func Default() *Catalog {
	c, err := New(defaultDefinitions())
	if err != nil {
		// The built-in set is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return c
}

// Indicator names in the built-in catalog.
const (
	AcademicStress       = "academic_stress"
	EmotionalWellbeing   = "emotional_wellbeing"
	SocialConnection     = "social_connection"
	PhysicalHealth       = "physical_health"
	BehavioralEngagement = "behavioral_engagement"
)

func defaultDefinitions() []domain.IndicatorDefinition {
	return []domain.IndicatorDefinition{
		{
			Name:       AcademicStress,
			Factors:    []string{"assignment_load", "exam_pressure", "grade_anxiety", "time_management"},
			Thresholds: domain.Thresholds{Low: 30, Moderate: 50, High: 70},
			Interventions: []domain.InterventionType{
				domain.InterventionAcademicSupport,
				domain.InterventionCounseling,
			},
		},
		{
			Name:       EmotionalWellbeing,
			Factors:    []string{"mood", "anxiety_level", "self_esteem", "emotional_regulation"},
			Thresholds: domain.Thresholds{Low: 35, Moderate: 55, High: 75},
			Interventions: []domain.InterventionType{
				domain.InterventionCounseling,
				domain.InterventionMindfulness,
			},
		},
		{
			Name:       SocialConnection,
			Factors:    []string{"peer_relationships", "family_support", "belonging", "social_activities"},
			Thresholds: domain.Thresholds{Low: 40, Moderate: 60, High: 80},
			Interventions: []domain.InterventionType{
				domain.InterventionPeerSupport,
				domain.InterventionFamilyEngagement,
			},
		},
		{
			Name:       PhysicalHealth,
			Factors:    []string{"sleep_quality", "energy_level", "appetite", "physical_activity"},
			Thresholds: domain.Thresholds{Low: 30, Moderate: 55, High: 75},
			Interventions: []domain.InterventionType{
				domain.InterventionMedicalReferral,
				domain.InterventionPhysicalActivity,
			},
		},
		{
			Name:       BehavioralEngagement,
			Factors:    []string{"attendance", "participation", "motivation", "concentration"},
			Thresholds: domain.Thresholds{Low: 35, Moderate: 55, High: 75},
			Interventions: []domain.InterventionType{
				domain.InterventionAcademicSupport,
				domain.InterventionCounseling,
			},
		},
	}
}
