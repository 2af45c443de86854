package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/attune/internal/catalog"
	"github.com/felixgeelhaar/attune/internal/domain"
)

// dispatchTimeout bounds a single fire-and-forget delivery attempt.
const dispatchTimeout = 30 * time.Second

// Service orchestrates the assessment pipeline: normalize, score, classify,
// plan, route. It is request-scoped and stateless between calls except for
// the persisted profile history. Concurrent submissions for the same
// profile are serialized by a per-profile mutex; the store's optimistic
// version check backs this up across processes.
type Service struct {
	catalog     *catalog.Catalog
	profiles    ProfileStore
	assessments AssessmentStore
	plans       PlanStore
	alerts      AlertStore
	dispatcher  Dispatcher
	policy      *domain.AccessPolicy

	normalizer *domain.Normalizer
	scorer     *domain.Scorer
	classifier *domain.Classifier
	planner    *domain.Planner
	router     *domain.EscalationRouter
	monitor    *domain.ProgressMonitor

	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// Config holds dependencies for creating a Service.
type Config struct {
	Catalog     *catalog.Catalog
	Profiles    ProfileStore
	Assessments AssessmentStore
	Plans       PlanStore
	Alerts      AlertStore
	Dispatcher  Dispatcher
	Policy      *domain.AccessPolicy
	Logger      *slog.Logger
	Now         func() time.Time
}

// NewService creates the assessment engine service.
func NewService(cfg Config) *Service {
	if cfg.Policy == nil {
		cfg.Policy = domain.DefaultAccessPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		catalog:     cfg.Catalog,
		profiles:    cfg.Profiles,
		assessments: cfg.Assessments,
		plans:       cfg.Plans,
		alerts:      cfg.Alerts,
		dispatcher:  cfg.Dispatcher,
		policy:      cfg.Policy,
		normalizer:  domain.NewNormalizer(),
		scorer:      domain.NewScorer(),
		classifier:  domain.NewClassifier(),
		planner:     domain.NewPlannerAt(cfg.Now),
		router:      domain.NewEscalationRouterAt(cfg.Policy, cfg.Now),
		monitor:     domain.NewProgressMonitorAt(cfg.Now),
		logger:      cfg.Logger,
		now:         cfg.Now,
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// profileLock returns the mutex serializing submissions for one profile.
func (s *Service) profileLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// SubmitRequest carries one raw assessment submission.
type SubmitRequest struct {
	ProfileID     uuid.UUID
	Type          domain.AssessmentType
	Source        domain.AssessmentSource
	Responses     map[string]domain.RawValue
	RequestedTier domain.PrivacyTier
}

// SubmitAssessment processes one submission as an atomic unit of work.
// Validation happens before any state changes; the assessment and plan are
// durably recorded before alert delivery is attempted, and delivery failure
// never fails the submission. The caller always receives the assessment
// synchronously.
func (s *Service) SubmitAssessment(ctx context.Context, req SubmitRequest) (*domain.Assessment, error) {
	if req.ProfileID == uuid.Nil {
		return nil, fmt.Errorf("%w: profile id is required", domain.ErrValidation)
	}
	if len(req.Responses) == 0 {
		return nil, fmt.Errorf("%w: no responses submitted", domain.ErrValidation)
	}

	// Reject malformed input before any scoring occurs.
	normalized, err := s.normalizer.Normalize(req.Responses)
	if err != nil {
		return nil, err
	}

	lock := s.profileLock(req.ProfileID)
	lock.Lock()
	defer lock.Unlock()

	profile, err := s.profiles.Get(ctx, req.ProfileID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrProfileNotFound):
		profile = domain.NewWellbeingProfile(req.ProfileID, req.RequestedTier)
		created = true
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}
	profile.RaiseTier(req.RequestedTier)

	now := s.now().UTC()
	assessment := &domain.Assessment{
		ID:          uuid.New(),
		ProfileID:   profile.ID,
		Timestamp:   now,
		Source:      s.sourceOrDefault(req.Source),
		Type:        s.typeOrDefault(req.Type, created),
		Results:     make(map[string]domain.IndicatorResult, s.catalog.Len()),
		PrivacyTier: profile.PrivacyTier,
	}

	for _, def := range s.catalog.All() {
		result := s.scorer.Score(def, normalized, profile.HistoryFor(def.Name))
		assessment.Results[def.Name] = result
	}

	defs := s.catalog.Definitions()
	classification := s.classifier.Classify(assessment.Results, defs)
	assessment.OverallScore = classification.OverallScore
	assessment.RiskLevel = classification.RiskLevel
	assessment.Recommendations = s.planner.Recommend(assessment.Results, defs)
	assessment.FollowUpRequired = s.classifier.FollowUpRequired(assessment.RiskLevel, assessment.Recommendations)

	for _, result := range assessment.Results {
		profile.RecordResult(result, now)
	}

	plan := s.planner.BuildPlan(assessment, domain.ProtocolFor(assessment.RiskLevel))
	if plan != nil {
		profile.MergeSupportTeam(plan.SupportTeam)
	}

	alert := s.router.Route(assessment, profile)

	// Durably record the assessment transaction before any dispatch.
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	if err := s.assessments.Insert(ctx, assessment); err != nil {
		return nil, fmt.Errorf("insert assessment: %w", err)
	}
	if plan != nil {
		if err := s.supersedeOpenPlan(ctx, profile.ID, now); err != nil {
			return nil, err
		}
		if err := s.plans.Insert(ctx, plan); err != nil {
			return nil, fmt.Errorf("insert plan: %w", err)
		}
	}
	if alert != nil {
		if err := s.alerts.Insert(ctx, alert); err != nil {
			return nil, fmt.Errorf("insert alert: %w", err)
		}
	}

	s.logger.Info("assessment recorded",
		"assessment_id", assessment.ID,
		"profile_id", profile.ID,
		"risk_level", assessment.RiskLevel,
		"overall_score", assessment.OverallScore,
		"critical_count", classification.CriticalCount,
		"alert", alert != nil,
		"plan", plan != nil,
	)

	// Fire-and-forget: the submitter never blocks on alert delivery.
	if alert != nil || plan != nil {
		go s.dispatch(alert, plan)
	}

	return assessment, nil
}

func (s *Service) sourceOrDefault(source domain.AssessmentSource) domain.AssessmentSource {
	if source == "" {
		return domain.SourceSelfReport
	}
	return source
}

func (s *Service) typeOrDefault(typ domain.AssessmentType, created bool) domain.AssessmentType {
	if typ != "" {
		return typ
	}
	if created {
		return domain.AssessmentInitial
	}
	return domain.AssessmentPeriodic
}

// supersedeOpenPlan closes out any still-open plan before a newer one lands.
func (s *Service) supersedeOpenPlan(ctx context.Context, profileID uuid.UUID, at time.Time) error {
	open, err := s.plans.OpenByProfile(ctx, profileID)
	if errors.Is(err, domain.ErrPlanNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load open plan: %w", err)
	}
	open.Supersede(at)
	if err := s.plans.Update(ctx, open); err != nil {
		return fmt.Errorf("supersede plan: %w", err)
	}
	return nil
}

// dispatch delivers an alert and plan outside the request path.
func (s *Service) dispatch(alert *domain.Alert, plan *domain.InterventionPlan) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if plan != nil {
		if err := s.dispatcher.DispatchPlan(ctx, plan); err != nil {
			s.logger.Warn("plan dispatch failed", "plan_id", plan.ID, "error", err)
		}
	}
	if alert != nil {
		if err := s.dispatcher.DispatchAlert(ctx, alert); err != nil {
			// The alert stays ACTIVE and undelivered; the redelivery
			// loop picks it up.
			s.logger.Warn("alert dispatch failed", "alert_id", alert.ID, "error", err)
			return
		}
		s.markDelivered(ctx, alert)
	}
}

func (s *Service) markDelivered(ctx context.Context, alert *domain.Alert) {
	alert.Delivered = true
	if err := s.alerts.Update(ctx, alert); err != nil {
		s.logger.Warn("mark alert delivered failed", "alert_id", alert.ID, "error", err)
	}
}

// GetProfile returns a profile after the privacy gate. Denials are logged,
// never degraded to a lower tier.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID, role domain.Role) (*domain.WellbeingProfile, error) {
	profile, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(role, profile.PrivacyTier); err != nil {
		s.logger.Warn("profile access denied", "profile_id", id, "role", role, "tier", profile.PrivacyTier)
		return nil, err
	}
	return profile, nil
}

// GetProgress aggregates assessment history over a lookback window. The
// gate applies at the profile's tier before any aggregation.
func (s *Service) GetProgress(ctx context.Context, id uuid.UUID, days int, role domain.Role) (*domain.ProgressReport, error) {
	profile, err := s.profiles.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(role, profile.PrivacyTier); err != nil {
		s.logger.Warn("progress access denied", "profile_id", id, "role", role, "tier", profile.PrivacyTier)
		return nil, err
	}

	if days <= 0 {
		days = 30
	}
	window := domain.LastDays(days, s.now().UTC())

	assessments, err := s.assessments.ListByProfile(ctx, id, window)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}

	plans, err := s.plans.ListByProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	var actions []domain.InterventionAction
	for _, plan := range plans {
		actions = append(actions, plan.Actions...)
	}

	return s.monitor.Report(id, assessments, actions, window), nil
}

// ResolveAlert moves an alert to RESOLVED. Resolving an already-resolved
// alert is a no-op, not an error.
func (s *Service) ResolveAlert(ctx context.Context, alertID uuid.UUID, role domain.Role) (*domain.Alert, error) {
	alert, err := s.alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(role, alert.PrivacyTier); err != nil {
		s.logger.Warn("alert access denied", "alert_id", alertID, "role", role, "tier", alert.PrivacyTier)
		return nil, err
	}

	if alert.Resolve(s.now().UTC()) {
		if err := s.alerts.Update(ctx, alert); err != nil {
			return nil, fmt.Errorf("update alert: %w", err)
		}
		s.logger.Info("alert resolved", "alert_id", alertID, "resolver", role)
	}
	return alert, nil
}

// AdvanceInterventionAction applies a progress update to an action and
// closes the owning plan once every action is done.
func (s *Service) AdvanceInterventionAction(ctx context.Context, actionID uuid.UUID, update domain.ProgressUpdate) (*domain.InterventionAction, error) {
	plan, err := s.plans.GetByAction(ctx, actionID)
	if err != nil {
		return nil, err
	}
	action, ok := plan.ActionByID(actionID)
	if !ok {
		return nil, domain.ErrActionNotFound
	}

	now := s.now().UTC()
	if err := action.Advance(update, now); err != nil {
		return nil, err
	}
	plan.UpdatedAt = now
	if plan.Status == domain.PlanOpen && plan.AllActionsDone() {
		plan.Close(now)
		s.logger.Info("intervention plan closed", "plan_id", plan.ID)
	}

	if err := s.plans.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	copied := *action
	return &copied, nil
}

// ListActiveAlerts returns the profile's active alerts visible to role.
// The profile-tier gate applies first; alerts above the requester's reach
// are filtered out rather than leaked.
func (s *Service) ListActiveAlerts(ctx context.Context, profileID uuid.UUID, role domain.Role) ([]*domain.Alert, error) {
	profile, err := s.profiles.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(role, profile.PrivacyTier); err != nil {
		s.logger.Warn("alert list access denied", "profile_id", profileID, "role", role)
		return nil, err
	}

	alerts, err := s.alerts.ListActiveByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	visible := alerts[:0]
	for _, alert := range alerts {
		if s.policy.Authorize(role, alert.PrivacyTier) == nil {
			visible = append(visible, alert)
		}
	}
	return visible, nil
}

// RedeliverPending retries delivery for alerts that are recorded but not
// yet delivered. Redelivery is at-least-once and idempotent by alert id.
func (s *Service) RedeliverPending(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = 50
	}
	pending, err := s.alerts.ListUndelivered(ctx, limit)
	if err != nil {
		return fmt.Errorf("list undelivered alerts: %w", err)
	}

	for _, alert := range pending {
		if err := s.dispatcher.DispatchAlert(ctx, alert); err != nil {
			s.logger.Warn("alert redelivery failed", "alert_id", alert.ID, "error", err)
			continue
		}
		s.markDelivered(ctx, alert)
	}
	return nil
}
