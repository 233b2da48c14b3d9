// Package statement_service orchestrates statement assembly, validation,
// persistence, caching, approval and distribution.
package statement_service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincore-statement-engine/internal/cache"
	"github.com/fincore-statement-engine/internal/domain/account"
	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/domain/workflow"
	"github.com/fincore-statement-engine/internal/engine/computation"
	"github.com/fincore-statement-engine/internal/engine/validation"
	"github.com/fincore-statement-engine/internal/monitor"
	"github.com/fincore-statement-engine/internal/resilience"
)

// ErrStatementUnbalanced is returned when an unbalanced statement reaches
// publish. It is escalated as a critical invariant breach and still
// surfaced, never downgraded.
var ErrStatementUnbalanced = errors.New("statement is not balanced and cannot be published")

// defaultRetryAttempts is used when no retry budget is configured.
const defaultRetryAttempts = 3

// StatementService implements the Service interface
type StatementService struct {
	repo       statement.Repository
	archive    statement.AuditArchive
	dataAccess account.DataAccess
	compute    *computation.Engine
	validate   *validation.Engine
	cache      *cache.Cache[*statement.Statement]
	monitor    *monitor.Monitor
	resilience *resilience.Handler
	notifier   Notifier
	logger     *slog.Logger

	retryAttempts int // Retries per storage or data access call

	// idLocks serializes mutations per statement id so audit entries are
	// appended in completion order and concurrent updates never lose writes.
	mu      sync.Mutex
	idLocks map[uuid.UUID]*sync.Mutex
}

// NewStatementService creates the orchestrator
func NewStatementService(
	logger *slog.Logger,
	repo statement.Repository,
	archive statement.AuditArchive,
	dataAccess account.DataAccess,
	compute *computation.Engine,
	validate *validation.Engine,
	statementCache *cache.Cache[*statement.Statement],
	perfMonitor *monitor.Monitor,
	resilienceHandler *resilience.Handler,
	notifier Notifier,
	retryAttempts int,
) Service {
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}
	return &StatementService{
		repo:          repo,
		archive:       archive,
		dataAccess:    dataAccess,
		compute:       compute,
		validate:      validate,
		cache:         statementCache,
		monitor:       perfMonitor,
		resilience:    resilienceHandler,
		notifier:      notifier,
		logger:        logger,
		retryAttempts: retryAttempts,
		idLocks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *StatementService) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.idLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.idLocks[id] = l
	}
	return l
}

func cacheKey(id uuid.UUID) string {
	return "statement:" + id.String()
}

// Create assembles, validates and persists a new statement
func (s *StatementService) Create(ctx context.Context, req *shared.CreateStatementRequest) (*statement.Statement, error) {
	token := s.monitor.Start("generation")

	st, err := s.doCreate(ctx, req)
	s.monitor.End(token, monitor.Outcome{
		Success:          err == nil,
		Err:              err,
		RecordsProcessed: entryCount(st),
	})
	if err != nil {
		s.recordFailure("statement.create", err, req.CorrelationID)
		return nil, err
	}
	return st, nil
}

func (s *StatementService) doCreate(ctx context.Context, req *shared.CreateStatementRequest) (*statement.Statement, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid create request: %w", err)
	}

	var accounts []account.Account
	var balances []account.Balance
	err := s.resilience.Retry(ctx, func(ctx context.Context) error {
		var fetchErr error
		accounts, fetchErr = s.dataAccess.FetchAccounts(ctx, req.OrganizationID)
		if fetchErr != nil {
			return fetchErr
		}
		balances, fetchErr = s.dataAccess.FetchBalances(ctx, req.OrganizationID, req.PeriodEndDate)
		return fetchErr
	}, s.retryAttempts, "data_access.fetch", map[string]string{"organization_id": req.OrganizationID.String()})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, account.ErrNoAccounts{OrganizationID: req.OrganizationID}
	}

	now := time.Now().UTC()
	st := &statement.Statement{
		ID:                   uuid.New(),
		OrganizationID:       req.OrganizationID,
		FiscalYearID:         req.FiscalYearID,
		PeriodEndDate:        req.PeriodEndDate,
		Format:               req.Format,
		ClassificationMethod: req.ClassificationMethod,
		Framework:            req.Framework,
		BaseCurrency:         req.BaseCurrency,
		ReportingCurrency:    req.ReportingCurrency,
		Status:               shared.StatementStatusDraft,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	st.Entries = s.compute.BuildEntries(accounts, balances, req.ClassificationMethod)
	s.recompute(st)

	if req.AutoApprove {
		st.Status = shared.StatementStatusApproved
	} else if len(req.ApprovalStages) > 0 {
		wf := workflow.New(st.ID, req.ApprovalStages)
		st.Workflow = &wf
		st.Status = shared.StatementStatusPending
	}

	report := s.runValidation(st, req.RequestedBy)
	st.AppendAudit("created", "", string(st.Status), req.RequestedBy, "statement generated")

	err = s.resilience.Retry(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, st)
	}, s.retryAttempts, "storage.insert", nil)
	if err != nil {
		return nil, err
	}

	s.archiveHistory(ctx, st, &report)
	s.cacheStatement(st)
	s.notify(ctx, st, "statement.created")
	s.logger.Info("statement created",
		"statement_id", st.ID.String(),
		"organization_id", st.OrganizationID.String(),
		"status", string(st.Status),
		"balanced", st.Totals.IsBalanced,
	)
	return st, nil
}

// Get retrieves a statement, cache-first with storage fallback and cache
// repopulation.
func (s *StatementService) Get(ctx context.Context, id uuid.UUID) (*statement.Statement, error) {
	token := s.monitor.Start("storage")

	if cached, ok := s.cache.Get(cacheKey(id)); ok {
		s.monitor.End(token, monitor.Outcome{Success: true, CacheHits: 1})
		return cached, nil
	}

	st, err := s.repo.Get(ctx, id)
	s.monitor.End(token, monitor.Outcome{Success: err == nil, Err: err, CacheMisses: 1})
	if err != nil {
		s.recordFailure("statement.get", err, "")
		return nil, err
	}

	s.cacheStatement(st)
	return st.Clone(), nil
}

// List retrieves a statement page directly from storage
func (s *StatementService) List(ctx context.Context, q shared.ListStatementsQuery) ([]*statement.Statement, int64, error) {
	q.ApplyDefaults()
	token := s.monitor.Start("storage")

	items, total, err := s.repo.Query(ctx, q)
	s.monitor.End(token, monitor.Outcome{Success: err == nil, Err: err, RecordsProcessed: len(items)})
	if err != nil {
		s.recordFailure("statement.list", err, "")
		return nil, 0, err
	}
	return items, total, nil
}

// Update applies entry patches and recomputes the statement
func (s *StatementService) Update(ctx context.Context, req *shared.UpdateStatementRequest) (*statement.Statement, error) {
	token := s.monitor.Start("generation")

	st, err := s.doUpdate(ctx, req)
	s.monitor.End(token, monitor.Outcome{Success: err == nil, Err: err, RecordsProcessed: entryCount(st)})
	if err != nil {
		s.recordFailure("statement.update", err, req.CorrelationID)
		return nil, err
	}
	return st, nil
}

func (s *StatementService) doUpdate(ctx context.Context, req *shared.UpdateStatementRequest) (*statement.Statement, error) {
	lock := s.lockFor(req.StatementID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.repo.Get(ctx, req.StatementID)
	if err != nil {
		return nil, err
	}
	if !st.IsMutable() {
		return nil, statement.ErrStatementImmutable{StatementID: st.ID}
	}

	changed, err := applyPatches(st, req.Entries, req.UpdatedBy)
	if err != nil {
		return nil, err
	}
	if req.Format != nil {
		st.Format = *req.Format
	}
	if req.Framework != nil {
		st.Framework = *req.Framework
	}

	var report *statement.ValidationReport
	if changed {
		s.recompute(st)
		r := s.runValidation(st, req.UpdatedBy)
		report = &r
	}

	st.AppendAudit("updated", "", "", req.UpdatedBy, req.Reason)

	err = s.resilience.Retry(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, st)
	}, s.retryAttempts, "storage.update", nil)
	if err != nil {
		return nil, err
	}

	s.archiveHistory(ctx, st, report)
	s.invalidateStatement(st.ID)
	s.cacheStatement(st)
	return st, nil
}

// Approve advances the approval workflow with an approve decision
func (s *StatementService) Approve(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error) {
	req.Decision = shared.DecisionApprove
	return s.decide(ctx, req)
}

// Reject advances the approval workflow with a reject decision
func (s *StatementService) Reject(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error) {
	req.Decision = shared.DecisionReject
	return s.decide(ctx, req)
}

func (s *StatementService) decide(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error) {
	token := s.monitor.Start("validation")

	st, err := s.doDecide(ctx, req)
	s.monitor.End(token, monitor.Outcome{Success: err == nil, Err: err})
	if err != nil {
		s.recordFailure("statement.approval", err, req.CorrelationID)
		return nil, err
	}
	return st, nil
}

func (s *StatementService) doDecide(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error) {
	lock := s.lockFor(req.StatementID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.repo.Get(ctx, req.StatementID)
	if err != nil {
		return nil, err
	}
	if st.Workflow == nil {
		return nil, fmt.Errorf("statement %s has no approval workflow", st.ID)
	}

	next, err := workflow.Advance(*st.Workflow, workflow.Event{
		ApproverID: req.ApproverID,
		Decision:   req.Decision,
		Comment:    req.Comment,
	})
	if err != nil {
		return nil, err
	}
	st.Workflow = &next

	previous := st.Status
	event := ""
	switch next.Status {
	case shared.WorkflowStatusApproved:
		// only full approval moves the statement itself
		st.Status = shared.StatementStatusApproved
		event = "statement.approved"
	case shared.WorkflowStatusRejected:
		// a single rejection rejects the statement regardless of
		// remaining stage count
		st.Status = shared.StatementStatusRejected
		event = "statement.rejected"
	}

	st.AppendAudit("approval_decision", string(previous), string(st.Status), req.ApproverID, req.Comment)

	err = s.resilience.Retry(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, st)
	}, s.retryAttempts, "storage.update", nil)
	if err != nil {
		return nil, err
	}

	s.archiveHistory(ctx, st, nil)
	s.invalidateStatement(st.ID)
	if event != "" {
		s.notify(ctx, st, event)
	}
	return st, nil
}

// Publish freezes the statement and fans out to the distribution list
func (s *StatementService) Publish(ctx context.Context, req *shared.PublishRequest) (*statement.Statement, error) {
	token := s.monitor.Start("generation")

	st, err := s.doPublish(ctx, req)
	s.monitor.End(token, monitor.Outcome{Success: err == nil, Err: err, RecordsProcessed: len(req.Recipients)})
	if err != nil {
		s.recordFailure("statement.publish", err, req.CorrelationID)
		return nil, err
	}
	return st, nil
}

func (s *StatementService) doPublish(ctx context.Context, req *shared.PublishRequest) (*statement.Statement, error) {
	lock := s.lockFor(req.StatementID)
	lock.Lock()
	defer lock.Unlock()

	st, err := s.repo.Get(ctx, req.StatementID)
	if err != nil {
		return nil, err
	}

	if !st.Totals.IsBalanced {
		// Critical invariant breach: escalate immediately via the
		// resilience hook and surface the error unchanged.
		s.resilience.Record(resilience.StructuredError{
			Operation: "statement.publish",
			Message:   fmt.Sprintf("unbalanced statement %s reached publish, difference %s", st.ID, st.Totals.BalanceDifference.String()),
			Severity:  shared.SeverityCritical,
			Category:  shared.CategoryInvariant,
		})
		return nil, fmt.Errorf("%w: difference %s", ErrStatementUnbalanced, st.Totals.BalanceDifference.String())
	}

	previous := st.Status
	st.Status = shared.StatementStatusPublished
	st.AppendAudit("published", string(previous), string(st.Status), req.PublishedBy, "")

	err = s.resilience.Retry(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, st)
	}, s.retryAttempts, "storage.update", nil)
	if err != nil {
		return nil, err
	}

	s.archiveHistory(ctx, st, nil)
	s.invalidateStatement(st.ID)

	// Fan out to recipients; an individual delivery failure is recorded
	// and distribution continues.
	for _, recipient := range req.Recipients {
		if err := s.notifier.Deliver(ctx, recipient, st); err != nil {
			s.resilience.Record(resilience.StructuredError{
				Operation: "statement.distribute",
				Message:   fmt.Sprintf("delivery to %s failed: %v", recipient, err),
				Severity:  shared.SeverityMedium,
				Category:  shared.CategoryTransient,
				Metadata:  map[string]string{"statement_id": st.ID.String(), "recipient": recipient},
			})
		}
	}

	s.notify(ctx, st, "statement.published")
	return st, nil
}

// Delete removes the statement from storage and drops its cache entries
func (s *StatementService) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	token := s.monitor.Start("storage")

	err := s.resilience.Retry(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, id)
	}, s.retryAttempts, "storage.delete", nil)

	s.monitor.End(token, monitor.Outcome{Success: err == nil, Err: err})
	if err != nil {
		s.recordFailure("statement.delete", err, "")
		return err
	}

	s.invalidateStatement(id)
	s.logger.Info("statement deleted", "statement_id", id.String(), "deleted_by", deletedBy)
	return nil
}

// recompute refreshes totals, ratios and analyses from the current entries
func (s *StatementService) recompute(st *statement.Statement) {
	st.Totals = s.compute.Aggregate(st.Entries)
	st.Ratios = s.compute.DeriveRatios(st.Totals, st.Entries)
	st.Comparative = s.compute.Comparative(st.Entries, "")
	st.Variance = s.compute.Variance()
}

func (s *StatementService) runValidation(st *statement.Statement, actor string) statement.ValidationReport {
	token := s.monitor.Start("validation")
	report := s.validate.Validate(st, actor)
	s.monitor.End(token, monitor.Outcome{Success: report.Status != shared.CheckStatusFailed, RecordsProcessed: len(report.Checks)})
	st.ValidationReports = append(st.ValidationReports, report)
	return report
}

// archiveHistory mirrors new audit entries and the latest validation report
// into the archive. Archive failures are recorded but do not fail the
// operation that produced the history.
func (s *StatementService) archiveHistory(ctx context.Context, st *statement.Statement, report *statement.ValidationReport) {
	if s.archive == nil {
		return
	}
	if len(st.AuditTrail) > 0 {
		last := st.AuditTrail[len(st.AuditTrail)-1]
		if err := s.archive.AppendAudit(ctx, &last); err != nil {
			s.resilience.Record(resilience.StructuredError{
				Operation: "archive.append_audit",
				Message:   err.Error(),
				Severity:  shared.SeverityLow,
				Category:  shared.CategoryTransient,
			})
		}
	}
	if report != nil {
		if err := s.archive.AppendValidationReport(ctx, report); err != nil {
			s.resilience.Record(resilience.StructuredError{
				Operation: "archive.append_report",
				Message:   err.Error(),
				Severity:  shared.SeverityLow,
				Category:  shared.CategoryTransient,
			})
		}
	}
}

func (s *StatementService) cacheStatement(st *statement.Statement) {
	s.cache.Set(cacheKey(st.ID), st, cache.EntryOptions{
		Tags: []string{"statement", string(st.Status)},
		Scope: cache.Scope{
			OrganizationID: st.OrganizationID,
			FiscalYearID:   st.FiscalYearID,
		},
	})
}

func (s *StatementService) invalidateStatement(id uuid.UUID) {
	pattern := "^statement:" + regexp.QuoteMeta(id.String())
	if _, err := s.cache.InvalidateByPattern(pattern); err != nil {
		s.logger.Warn("cache invalidation failed", "statement_id", id.String(), "error", err)
	}
}

func (s *StatementService) notify(ctx context.Context, st *statement.Statement, event string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Deliver(ctx, event, st); err != nil {
		s.logger.Warn("statement event delivery failed", "event", event, "statement_id", st.ID.String(), "error", err)
	}
}

func (s *StatementService) recordFailure(operation string, err error, correlationID string) {
	severity, category := categorize(err)
	meta := map[string]string{}
	if correlationID != "" {
		meta["correlation_id"] = correlationID
	}
	s.resilience.Record(resilience.StructuredError{
		Operation: operation,
		Message:   err.Error(),
		Severity:  severity,
		Category:  category,
		Metadata:  meta,
	})
}

// categorize maps an error to the handling taxonomy
func categorize(err error) (shared.ErrorSeverity, shared.ErrorCategory) {
	var notFound statement.ErrStatementNotFound
	var noAccounts account.ErrNoAccounts
	var immutable statement.ErrStatementImmutable
	switch {
	case errors.As(err, &notFound), errors.As(err, &noAccounts):
		return shared.SeverityLow, shared.CategoryNotFound
	case errors.As(err, &immutable),
		errors.Is(err, shared.ErrMissingOrganization),
		errors.Is(err, shared.ErrMissingPeriodEnd),
		errors.Is(err, shared.ErrInvalidClassification),
		errors.Is(err, shared.ErrInvalidFormat),
		errors.Is(err, shared.ErrInvalidCurrency),
		errors.Is(err, workflow.ErrNoPendingStage),
		errors.Is(err, workflow.ErrWorkflowClosed):
		return shared.SeverityLow, shared.CategoryValidation
	case errors.Is(err, ErrStatementUnbalanced):
		return shared.SeverityCritical, shared.CategoryInvariant
	default:
		return shared.SeverityHigh, shared.CategoryTransient
	}
}

// applyPatches mutates entries in place, recording reclassifications.
// Returns whether any entry changed.
func applyPatches(st *statement.Statement, patches []shared.EntryPatch, actor string) (bool, error) {
	if len(patches) == 0 {
		return false, nil
	}
	byID := make(map[uuid.UUID]*statement.Entry, len(st.Entries))
	for i := range st.Entries {
		byID[st.Entries[i].ID] = &st.Entries[i]
	}

	changed := false
	for _, p := range patches {
		entry, ok := byID[p.EntryID]
		if !ok {
			return false, fmt.Errorf("entry %s not found on statement %s", p.EntryID, st.ID)
		}
		if p.Amount != nil {
			amount, err := decimal.NewFromString(*p.Amount)
			if err != nil {
				return false, fmt.Errorf("invalid amount for entry %s: %w", p.EntryID, err)
			}
			entry.Amount = amount
			changed = true
		}
		if p.Subtype != nil && *p.Subtype != entry.Subtype {
			entry.Reclassifications = append(entry.Reclassifications, statement.Reclassification{
				FromSubtype: entry.Subtype,
				ToSubtype:   *p.Subtype,
				MovedBy:     actor,
				MovedAt:     time.Now().UTC(),
			})
			entry.Subtype = *p.Subtype
			changed = true
		}
		if p.Classification != nil {
			entry.Classification = *p.Classification
			changed = true
		}
	}
	return changed, nil
}

func entryCount(st *statement.Statement) int {
	if st == nil {
		return 0
	}
	return len(st.Entries)
}
