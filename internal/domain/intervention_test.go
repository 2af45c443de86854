package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestAdvance(t *testing.T) {
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	action := &InterventionAction{ID: uuid.New(), Status: ActionPending}
	if err := action.Advance(ProgressUpdate{Note: "first session held", Status: ActionInProgress, Effectiveness: 4}, at); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if action.Status != ActionInProgress {
		t.Errorf("Status = %v, want in_progress", action.Status)
	}
	if len(action.Progress) != 1 {
		t.Fatalf("Progress length = %d, want 1", len(action.Progress))
	}
	if action.Progress[0].Effectiveness != 4 {
		t.Errorf("Effectiveness = %d, want 4", action.Progress[0].Effectiveness)
	}

	done := at.Add(time.Hour)
	if err := action.Advance(ProgressUpdate{Status: ActionCompleted}, done); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if action.CompletedAt == nil || !action.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", action.CompletedAt, done)
	}
}

func TestAdvance_TerminalStatesReject(t *testing.T) {
	at := time.Now().UTC()
	for _, status := range []ActionStatus{ActionCompleted, ActionCancelled} {
		action := &InterventionAction{ID: uuid.New(), Status: status}
		err := action.Advance(ProgressUpdate{Status: ActionInProgress}, at)
		if !errors.Is(err, ErrInvalidProgress) {
			t.Errorf("Advance() on %s action = %v, want ErrInvalidProgress", status, err)
		}
	}
}

func TestAdvance_InvalidInput(t *testing.T) {
	at := time.Now().UTC()

	tests := []struct {
		name   string
		update ProgressUpdate
	}{
		{"unknown status", ProgressUpdate{Status: "paused"}},
		{"effectiveness too low", ProgressUpdate{Status: ActionInProgress, Effectiveness: -1}},
		{"effectiveness too high", ProgressUpdate{Status: ActionInProgress, Effectiveness: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action := &InterventionAction{ID: uuid.New(), Status: ActionPending}
			if err := action.Advance(tt.update, at); !errors.Is(err, ErrInvalidProgress) {
				t.Errorf("Advance() = %v, want ErrInvalidProgress", err)
			}
			if len(action.Progress) != 0 {
				t.Errorf("Progress = %v, rejected update must not record", action.Progress)
			}
		})
	}
}

func TestLatestEffectiveness(t *testing.T) {
	action := &InterventionAction{Status: ActionInProgress}
	if got := action.LatestEffectiveness(); got != 0 {
		t.Errorf("LatestEffectiveness() = %d, want 0 with no entries", got)
	}

	at := time.Now().UTC()
	action.Advance(ProgressUpdate{Status: ActionInProgress, Effectiveness: 2}, at)
	action.Advance(ProgressUpdate{Status: ActionInProgress}, at.Add(time.Hour))
	action.Advance(ProgressUpdate{Status: ActionInProgress, Effectiveness: 5}, at.Add(2*time.Hour))
	action.Advance(ProgressUpdate{Status: ActionInProgress}, at.Add(3*time.Hour))

	if got := action.LatestEffectiveness(); got != 5 {
		t.Errorf("LatestEffectiveness() = %d, want most recent non-zero 5", got)
	}
}

func TestAllActionsDone(t *testing.T) {
	plan := &InterventionPlan{}
	if plan.AllActionsDone() {
		t.Error("empty plan should not count as done")
	}

	plan.Actions = []InterventionAction{
		{Status: ActionCompleted},
		{Status: ActionCancelled},
	}
	if !plan.AllActionsDone() {
		t.Error("completed and cancelled actions should count as done")
	}

	plan.Actions = append(plan.Actions, InterventionAction{Status: ActionPending})
	if plan.AllActionsDone() {
		t.Error("a pending action should keep the plan open")
	}
}

func TestActionByID(t *testing.T) {
	target := InterventionAction{ID: uuid.New()}
	plan := &InterventionPlan{Actions: []InterventionAction{{ID: uuid.New()}, target}}

	got, ok := plan.ActionByID(target.ID)
	if !ok {
		t.Fatal("ActionByID() not found")
	}
	if got.ID != target.ID {
		t.Errorf("ActionByID() = %v, want %v", got.ID, target.ID)
	}

	if _, ok := plan.ActionByID(uuid.New()); ok {
		t.Error("ActionByID() found a nonexistent action")
	}
}
