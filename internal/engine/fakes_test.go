package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/domain"
)

// In-memory store fakes mirroring the SQL stores' contracts, including the
// optimistic version check on profile saves.

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*domain.WellbeingProfile
	saveErr  error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[uuid.UUID]*domain.WellbeingProfile)}
}

func (s *fakeProfileStore) Get(ctx context.Context, id uuid.UUID) (*domain.WellbeingProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakeProfileStore) Save(ctx context.Context, p *domain.WellbeingProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
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

type fakeAssessmentStore struct {
	mu          sync.Mutex
	assessments []*domain.Assessment
}

func (s *fakeAssessmentStore) Insert(ctx context.Context, a *domain.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assessments = append(s.assessments, a)
	return nil
}

func (s *fakeAssessmentStore) Get(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assessments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, domain.ErrAssessmentNotFound
}

func (s *fakeAssessmentStore) ListByProfile(ctx context.Context, profileID uuid.UUID, window domain.Window) ([]*domain.Assessment, error) {
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

func (s *fakeAssessmentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assessments)
}

type fakePlanStore struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*domain.InterventionPlan
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{plans: make(map[uuid.UUID]*domain.InterventionPlan)}
}

func (s *fakePlanStore) Insert(ctx context.Context, p *domain.InterventionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = copyPlan(p)
	return nil
}

func (s *fakePlanStore) Update(ctx context.Context, p *domain.InterventionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.plans[p.ID]; !ok {
		return domain.ErrPlanNotFound
	}
	s.plans[p.ID] = copyPlan(p)
	return nil
}

func (s *fakePlanStore) GetByAction(ctx context.Context, actionID uuid.UUID) (*domain.InterventionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		for _, a := range p.Actions {
			if a.ID == actionID {
				return copyPlan(p), nil
			}
		}
	}
	return nil, domain.ErrActionNotFound
}

func (s *fakePlanStore) OpenByProfile(ctx context.Context, profileID uuid.UUID) (*domain.InterventionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.ProfileID == profileID && p.Status == domain.PlanOpen {
			return copyPlan(p), nil
		}
	}
	return nil, domain.ErrPlanNotFound
}

func (s *fakePlanStore) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.InterventionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.InterventionPlan
	for _, p := range s.plans {
		if p.ProfileID == profileID {
			out = append(out, copyPlan(p))
		}
	}
	return out, nil
}

func (s *fakePlanStore) byStatus(status domain.PlanStatus) []*domain.InterventionPlan {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.InterventionPlan
	for _, p := range s.plans {
		if p.Status == status {
			out = append(out, copyPlan(p))
		}
	}
	return out
}

func copyPlan(p *domain.InterventionPlan) *domain.InterventionPlan {
	copied := *p
	copied.Actions = append([]domain.InterventionAction(nil), p.Actions...)
	return &copied
}

type fakeAlertStore struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*domain.Alert
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{alerts: make(map[uuid.UUID]*domain.Alert)}
}

func (s *fakeAlertStore) Insert(ctx context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.alerts[a.ID] = &copied
	return nil
}

func (s *fakeAlertStore) Get(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *fakeAlertStore) Update(ctx context.Context, a *domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[a.ID]; !ok {
		return domain.ErrAlertNotFound
	}
	copied := *a
	s.alerts[a.ID] = &copied
	return nil
}

func (s *fakeAlertStore) ListActiveByProfile(ctx context.Context, profileID uuid.UUID) ([]*domain.Alert, error) {
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

func (s *fakeAlertStore) ListUndelivered(ctx context.Context, limit int) ([]*domain.Alert, error) {
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

func (s *fakeAlertStore) all() []*domain.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Alert
	for _, a := range s.alerts {
		copied := *a
		out = append(out, &copied)
	}
	return out
}

// fakeDispatcher records deliveries and signals each alert dispatch so tests
// can wait for the fire-and-forget goroutine.
type fakeDispatcher struct {
	mu       sync.Mutex
	alerts   []*domain.Alert
	plans    []*domain.InterventionPlan
	failNext bool
	alertCh  chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{alertCh: make(chan struct{}, 16)}
}

func (d *fakeDispatcher) DispatchAlert(ctx context.Context, a *domain.Alert) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failNext {
		d.failNext = false
		return errors.New("broker unavailable")
	}
	d.alerts = append(d.alerts, a)
	select {
	case d.alertCh <- struct{}{}:
	default:
	}
	return nil
}

func (d *fakeDispatcher) DispatchPlan(ctx context.Context, p *domain.InterventionPlan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plans = append(d.plans, p)
	return nil
}

func (d *fakeDispatcher) alertCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alerts)
}
