package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fincore-statement-engine/internal/api/middleware"
	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
	"github.com/fincore-statement-engine/internal/domain/workflow"
	"github.com/fincore-statement-engine/internal/statement_service"
)

// StatementHandler handles HTTP requests for statement operations
type StatementHandler struct {
	service  statement_service.Service
	archive  statement.AuditArchive
	exporter statement_service.Exporter
	logger   *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(logger *slog.Logger, service statement_service.Service, archive statement.AuditArchive, exporter statement_service.Exporter) *StatementHandler {
	return &StatementHandler{
		service:  service,
		archive:  archive,
		exporter: exporter,
		logger:   logger,
	}
}

// Create assembles a new statement from the organization's account data
func (h *StatementHandler) Create(c *gin.Context) {
	var body CreateStatementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	orgID, err := uuid.Parse(body.OrganizationID)
	if err != nil {
		RespondBadRequest(c, "Invalid organization ID")
		return
	}

	var fiscalYearID uuid.UUID
	if body.FiscalYearID != "" {
		fiscalYearID, err = uuid.Parse(body.FiscalYearID)
		if err != nil {
			RespondBadRequest(c, "Invalid fiscal year ID")
			return
		}
	}

	periodEnd, err := parseDate(body.PeriodEndDate)
	if err != nil {
		RespondBadRequest(c, "Invalid period end date, expected RFC 3339 date")
		return
	}

	stages := make([]shared.StageRequest, 0, len(body.ApprovalStages))
	for _, stage := range body.ApprovalStages {
		stages = append(stages, shared.StageRequest{
			Name:         stage.Name,
			ApproverID:   stage.ApproverID,
			ApproverType: stage.ApproverType,
			Required:     stage.Required,
		})
	}

	req := &shared.CreateStatementRequest{
		OrganizationID:       orgID,
		FiscalYearID:         fiscalYearID,
		PeriodEndDate:        periodEnd,
		Format:               shared.StatementFormat(body.Format),
		ClassificationMethod: shared.ClassificationMethod(body.ClassificationMethod),
		Framework:            shared.ComplianceFramework(body.Framework),
		BaseCurrency:         body.BaseCurrency,
		ReportingCurrency:    body.ReportingCurrency,
		AutoApprove:          body.AutoApprove,
		ApprovalStages:       stages,
		RequestedBy:          body.RequestedBy,
		CorrelationID:        middleware.GetCorrelationID(c),
	}

	st, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to create statement")
		return
	}

	RespondCreated(c, st)
}

// GetByID retrieves a statement by its ID, returns 404 if not found
func (h *StatementHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	st, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err, "Failed to get statement")
		return
	}

	RespondOK(c, st)
}

// List retrieves a filtered, paginated page of statements
func (h *StatementHandler) List(c *gin.Context) {
	var params ListStatementsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid listing parameters", "error", err)
		RespondBadRequest(c, "Invalid listing parameters: "+err.Error())
		return
	}

	orgID, err := uuid.Parse(params.OrganizationID)
	if err != nil {
		RespondBadRequest(c, "Invalid organization ID")
		return
	}

	q := shared.ListStatementsQuery{
		OrganizationID: orgID,
		Status:         shared.StatementStatus(params.Status),
		SortBy:         params.SortBy,
		SortDesc:       params.SortDesc,
		Page:           params.Page,
		PerPage:        params.PerPage,
	}
	if params.FiscalYearID != "" {
		q.FiscalYearID, err = uuid.Parse(params.FiscalYearID)
		if err != nil {
			RespondBadRequest(c, "Invalid fiscal year ID")
			return
		}
	}
	if params.PeriodFrom != "" {
		q.PeriodFrom, err = parseDate(params.PeriodFrom)
		if err != nil {
			RespondBadRequest(c, "Invalid period_from date")
			return
		}
	}
	if params.PeriodTo != "" {
		q.PeriodTo, err = parseDate(params.PeriodTo)
		if err != nil {
			RespondBadRequest(c, "Invalid period_to date")
			return
		}
	}

	statements, total, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		h.respondServiceError(c, err, "Failed to list statements")
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, statements, q.Page, q.PerPage, int(total))
}

// Update applies entry patches and re-derives totals and ratios
func (h *StatementHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var body UpdateStatementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	patches := make([]shared.EntryPatch, 0, len(body.Entries))
	for _, patch := range body.Entries {
		entryID, err := uuid.Parse(patch.EntryID)
		if err != nil {
			RespondBadRequest(c, "Invalid entry ID: "+patch.EntryID)
			return
		}
		p := shared.EntryPatch{
			EntryID:        entryID,
			Amount:         patch.Amount,
			Classification: patch.Classification,
		}
		if patch.Subtype != nil {
			subtype := shared.AccountSubtype(*patch.Subtype)
			p.Subtype = &subtype
		}
		patches = append(patches, p)
	}

	req := &shared.UpdateStatementRequest{
		StatementID:   id,
		Entries:       patches,
		Reason:        body.Reason,
		UpdatedBy:     body.UpdatedBy,
		CorrelationID: middleware.GetCorrelationID(c),
	}
	if body.Format != nil {
		format := shared.StatementFormat(*body.Format)
		req.Format = &format
	}
	if body.Framework != nil {
		framework := shared.ComplianceFramework(*body.Framework)
		req.Framework = &framework
	}

	st, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		h.respondServiceError(c, err, "Failed to update statement")
		return
	}

	RespondOK(c, st)
}

// Approve records an approval decision on the statement's workflow
func (h *StatementHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject records a rejection decision on the statement's workflow
func (h *StatementHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

func (h *StatementHandler) decide(c *gin.Context, apply func(ctx context.Context, req *shared.ApprovalRequest) (*statement.Statement, error)) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var body ApprovalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	st, err := apply(c.Request.Context(), &shared.ApprovalRequest{
		StatementID:   id,
		ApproverID:    body.ApproverID,
		Comment:       body.Comment,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondServiceError(c, err, "Failed to record approval decision")
		return
	}
	RespondOK(c, st)
}

// Publish freezes the statement and distributes it to recipients
func (h *StatementHandler) Publish(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var body PublishBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	st, err := h.service.Publish(c.Request.Context(), &shared.PublishRequest{
		StatementID:   id,
		PublishedBy:   body.PublishedBy,
		Recipients:    body.Recipients,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondServiceError(c, err, "Failed to publish statement")
		return
	}

	RespondOK(c, st)
}

// Delete removes a statement and its cache entries
func (h *StatementHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	deletedBy := c.Query("deleted_by")
	if deletedBy == "" {
		deletedBy = "system"
	}

	if err := h.service.Delete(c.Request.Context(), id, deletedBy); err != nil {
		h.respondServiceError(c, err, "Failed to delete statement")
		return
	}

	RespondNoContent(c)
}

// Export renders a statement artifact in the requested format
func (h *StatementHandler) Export(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var body ExportBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	st, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err, "Failed to get statement for export")
		return
	}

	result, err := h.exporter.Render(c.Request.Context(), st, body.Format, body.Options)
	if err != nil {
		h.logger.Error("Failed to export statement", "statement_id", id, "format", body.Format, "error", err)
		RespondBadRequest(c, "Failed to export statement: "+err.Error())
		return
	}

	RespondOK(c, result)
}

// GetAuditTrail retrieves the archived audit history for a statement
func (h *StatementHandler) GetAuditTrail(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, err := h.archive.GetAuditTrail(c.Request.Context(), id, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get audit trail", "statement_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, entries)
}

// GetValidationReports retrieves archived validation reports for a statement
func (h *StatementHandler) GetValidationReports(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	reports, err := h.archive.GetValidationReports(c.Request.Context(), id, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get validation reports", "statement_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, reports)
}

func (h *StatementHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid statement ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid statement ID")
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service errors onto HTTP statuses
func (h *StatementHandler) respondServiceError(c *gin.Context, err error, logMessage string) {
	h.logger.Error(logMessage, "error", err)

	var notFound statement.ErrStatementNotFound
	var immutable statement.ErrStatementImmutable
	var concurrent statement.ErrConcurrentModification
	switch {
	case errors.As(err, &notFound):
		RespondNotFound(c, "Statement not found")
	case errors.As(err, &immutable):
		RespondConflict(c, "Statement is published and immutable")
	case errors.As(err, &concurrent):
		RespondConflict(c, "Statement was modified concurrently, retry the request")
	case errors.Is(err, statement_service.ErrStatementUnbalanced):
		RespondConflict(c, "Statement is not balanced and cannot be published")
	case errors.Is(err, workflow.ErrWorkflowClosed):
		RespondConflict(c, "Approval workflow is already closed")
	case errors.Is(err, workflow.ErrNoPendingStage):
		RespondConflict(c, "No pending approval stage is assigned to this approver")
	case errors.Is(err, workflow.ErrInvalidDecision),
		errors.Is(err, shared.ErrMissingOrganization),
		errors.Is(err, shared.ErrMissingPeriodEnd),
		errors.Is(err, shared.ErrInvalidClassification),
		errors.Is(err, shared.ErrInvalidFormat),
		errors.Is(err, shared.ErrInvalidCurrency):
		RespondBadRequest(c, err.Error())
	default:
		RespondInternalError(c)
	}
}

func parseDate(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}
