// Package workflow implements the multi-stage approval state machine as pure
// state-transition functions: transitions take a workflow value and an event
// and return the next workflow value, so the machine is testable without any
// storage behind it.
package workflow

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

// Common workflow errors
var (
	ErrWorkflowClosed  = errors.New("workflow is not pending")
	ErrNoPendingStage  = errors.New("no pending stage assigned to approver")
	ErrInvalidDecision = errors.New("unknown approval decision")
)

// Workflow is the approval state for exactly one statement
type Workflow struct {
	ID          uuid.UUID             `json:"id" bson:"id"`
	StatementID uuid.UUID             `json:"statement_id" bson:"statement_id"`
	Status      shared.WorkflowStatus `json:"status" bson:"status"`
	Stages      []Stage               `json:"stages" bson:"stages"`
	Escalations []Escalation          `json:"escalations,omitempty" bson:"escalations,omitempty"`
	CreatedAt   time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at" bson:"updated_at"`
}

// Stage is one ordered approval step owned by a single approver
type Stage struct {
	Name         string             `json:"name" bson:"name"`
	Order        int                `json:"order" bson:"order"`
	ApproverID   string             `json:"approver_id" bson:"approver_id"`
	ApproverType string             `json:"approver_type,omitempty" bson:"approver_type,omitempty"`
	Required     bool               `json:"required" bson:"required"`
	Status       shared.StageStatus `json:"status" bson:"status"`
	Comment      string             `json:"comment,omitempty" bson:"comment,omitempty"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty" bson:"decided_at,omitempty"`
}

// Escalation records an overdue or force-escalated stage
type Escalation struct {
	StageName   string    `json:"stage_name" bson:"stage_name"`
	EscalatedTo string    `json:"escalated_to" bson:"escalated_to"`
	Reason      string    `json:"reason" bson:"reason"`
	EscalatedAt time.Time `json:"escalated_at" bson:"escalated_at"`
}

// Event is one approver decision applied to a workflow
type Event struct {
	ApproverID string
	Decision   shared.ApprovalDecision
	Comment    string
	At         time.Time
}

// New builds a pending workflow from ordered stage requests
func New(statementID uuid.UUID, stages []shared.StageRequest) Workflow {
	now := time.Now().UTC()
	w := Workflow{
		ID:          uuid.New(),
		StatementID: statementID,
		Status:      shared.WorkflowStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, s := range stages {
		w.Stages = append(w.Stages, Stage{
			Name:         s.Name,
			Order:        i + 1,
			ApproverID:   s.ApproverID,
			ApproverType: s.ApproverType,
			Required:     s.Required,
			Status:       shared.StageStatusPending,
		})
	}
	return w
}

// Advance applies one approver decision and returns the next workflow value.
// It locates the first pending stage assigned to the approver, transitions
// it, and recomputes the overall status. A rejection short-circuits all
// remaining stages.
func Advance(w Workflow, ev Event) (Workflow, error) {
	if w.Status != shared.WorkflowStatusPending {
		return w, fmt.Errorf("%w: status is %s", ErrWorkflowClosed, w.Status)
	}

	next := w.Clone()
	idx := -1
	for i := range next.Stages {
		if next.Stages[i].Status == shared.StageStatusPending && next.Stages[i].ApproverID == ev.ApproverID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return w, fmt.Errorf("%w: approver %s", ErrNoPendingStage, ev.ApproverID)
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	switch ev.Decision {
	case shared.DecisionApprove:
		next.Stages[idx].Status = shared.StageStatusApproved
	case shared.DecisionReject:
		next.Stages[idx].Status = shared.StageStatusRejected
	case shared.DecisionSkip:
		next.Stages[idx].Status = shared.StageStatusSkipped
	default:
		return w, fmt.Errorf("%w: %s", ErrInvalidDecision, ev.Decision)
	}
	next.Stages[idx].Comment = ev.Comment
	next.Stages[idx].DecidedAt = &at

	next.Status = overallStatus(next.Stages)
	next.UpdatedAt = at
	return next, nil
}

// Cancel moves a pending workflow to the cancelled terminal state
func Cancel(w Workflow) (Workflow, error) {
	if w.Status != shared.WorkflowStatusPending {
		return w, fmt.Errorf("%w: status is %s", ErrWorkflowClosed, w.Status)
	}
	next := w.Clone()
	next.Status = shared.WorkflowStatusCancelled
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

// Escalate records an escalation without changing stage state
func Escalate(w Workflow, stageName, escalatedTo, reason string) Workflow {
	next := w.Clone()
	next.Escalations = append(next.Escalations, Escalation{
		StageName:   stageName,
		EscalatedTo: escalatedTo,
		Reason:      reason,
		EscalatedAt: time.Now().UTC(),
	})
	return next
}

// overallStatus derives the workflow status from stage states. Any rejected
// stage rejects the workflow; approval requires every required stage
// approved. Skipped and optional stages never block approval.
func overallStatus(stages []Stage) shared.WorkflowStatus {
	for _, s := range stages {
		if s.Status == shared.StageStatusRejected {
			return shared.WorkflowStatusRejected
		}
	}
	for _, s := range stages {
		if s.Required && s.Status != shared.StageStatusApproved && s.Status != shared.StageStatusSkipped {
			return shared.WorkflowStatusPending
		}
	}
	return shared.WorkflowStatusApproved
}

// Clone returns a deep copy of the workflow
func (w Workflow) Clone() Workflow {
	cp := w
	cp.Stages = make([]Stage, len(w.Stages))
	for i, s := range w.Stages {
		sc := s
		if s.DecidedAt != nil {
			t := *s.DecidedAt
			sc.DecidedAt = &t
		}
		cp.Stages[i] = sc
	}
	cp.Escalations = append([]Escalation(nil), w.Escalations...)
	return cp
}
