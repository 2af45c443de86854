package daemon

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// In-memory stores backing handler tests. They mirror the SQL stores'
// contracts, including the optimistic version check on profile saves.

type memProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*domain.WellbeingProfile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[uuid.UUID]*domain.WellbeingProfile)}
}

func (s *memProfileStore) Get(ctx context.Context, id uuid.UUID) (*domain.WellbeingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *memProfileStore) Save(ctx context.Context, p *domain.WellbeingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[p.ID]
	if p.Version == 0 {
		p.Version = 1
	} else {
		if !ok || existing.Version != p.Version {
			return domain.ErrConcurrencyConflict
		}
		p.Version++
	}
	copied := *p
	s.profiles[p.ID] = &copied
	return nil
}

type memAssessmentStore struct {
	mu          sync.Mutex
	assessments []*domain.Assessment
}

func newMemAssessmentStore() *memAssessmentStore {
	return &memAssessmentStore{}
}

func (s *memAssessmentStore) Insert(ctx context.Context, a *domain.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *memAssessmentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrAssessmentNotFound
}

func (s *memAssessmentStore) ListByProfile(ctx context.Context, profileID uuid.UUID, window domain.Window) ([]*domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Assessment
	for _, a := range s.assessments {
		if a.ProfileID == profileID && window.Contains(a.Timestamp) {
			out = append(out, a)
		}
	}
	return out, nil
}

type memPlanStore struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*domain.InterventionPlan
}

func newMemPlanStore() *memPlanStore {
	return &memPlanStore{plans: make(map[uuid.UUID]*domain.InterventionPlan)}
}

func (s *memPlanStore) Insert(ctx context.Context, p *domain.InterventionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = clonePlan(p)
	return nil
}

func (s *memPlanStore) Update(ctx context.Context, p *domain.InterventionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; !ok {
		return domain.ErrPlanNotFound
	}
	s.plans[p.ID] = clonePlan(p)
	return nil
}

func (s *memPlanStore) GetByAction(ctx context.Context, actionID uuid.UUID) (*domain.InterventionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		for _, a := range p.Actions {
			if a.ID == actionID {
				return clonePlan(p), nil
			}
		}
	}
	return nil, domain.ErrActionNotFound
}

func (s *memPlanStore) OpenByProfile(ctx context.Context, profileID uuid.UUID) (*domain.InterventionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.ProfileID == profileID && p.Status == domain.PlanOpen {
			return clonePlan(p), nil
		}
	}
	return nil, domain.ErrPlanNotFound
}

func (s *memPlanStore) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.InterventionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.InterventionPlan
	for _, p := range s.plans {
		if p.ProfileID == profileID {
			out = append(out, clonePlan(p))
		}
	}
	return out, nil
}

func clonePlan(p *domain.InterventionPlan) *domain.InterventionPlan {
	copied := *p
	copied.Actions = append([]domain.InterventionAction(nil), p.Actions...)
	return &copied
}

type memAlertStore struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*domain.Alert
}

func newMemAlertStore() *memAlertStore {
	return &memAlertStore{alerts: make(map[uuid.UUID]*domain.Alert)}
}

func (s *memAlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.alerts[a.ID] = &copied
	return nil
}

func (s *memAlertStore) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memAlertStore) Update(ctx context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; !ok {
		return domain.ErrAlertNotFound
	}
	copied := *a
	s.alerts[a.ID] = &copied
	return nil
}

func (s *memAlertStore) ListActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Alert
	for _, a := range s.alerts {
		if a.ProfileID == profileID && a.Status == domain.AlertActive {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memAlertStore) ListUndelivered(ctx context.Context, limit int) ([]*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Alert
	for _, a := range s.alerts {
		if !a.Delivered && a.Status == domain.AlertActive {
			copied := *a
			out = append(out, &copied)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// memDispatcher records dispatched alerts and plans.
type memDispatcher struct {
	mu     sync.Mutex
	alerts []*domain.Alert
	plans  []*domain.InterventionPlan
}

func (d *memDispatcher) DispatchAlert(ctx context.Context, a *domain.Alert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alerts = append(d.alerts, a)
	return nil
}

func (d *memDispatcher) DispatchPlan(ctx context.Context, p *domain.InterventionPlan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plans = append(d.plans, p)
	return nil
}
