package handler

// CreateStatementBody represents a request to assemble a new statement
type CreateStatementBody struct {
	OrganizationID       string      `json:"organization_id" binding:"required,uuid"`
	FiscalYearID         string      `json:"fiscal_year_id" binding:"omitempty,uuid"`
	PeriodEndDate        string      `json:"period_end_date" binding:"required"` // RFC 3339 date
	Format               string      `json:"format,omitempty"`
	ClassificationMethod string      `json:"classification_method,omitempty"`
	Framework            string      `json:"framework,omitempty"`
	BaseCurrency         string      `json:"base_currency,omitempty" binding:"omitempty,len=3"`
	ReportingCurrency    string      `json:"reporting_currency,omitempty" binding:"omitempty,len=3"`
	AutoApprove          bool        `json:"auto_approve,omitempty"`
	ApprovalStages       []StageBody `json:"approval_stages,omitempty"`
	RequestedBy          string      `json:"requested_by" binding:"required"`
}

// StageBody describes one approval stage to create
type StageBody struct {
	Name         string `json:"name" binding:"required"`
	ApproverID   string `json:"approver_id" binding:"required"`
	ApproverType string `json:"approver_type,omitempty"`
	Required     bool   `json:"required"`
}

// UpdateStatementBody represents a partial statement mutation
type UpdateStatementBody struct {
	Entries   []EntryPatchBody `json:"entries,omitempty"`
	Format    *string          `json:"format,omitempty"`
	Framework *string          `json:"framework,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	UpdatedBy string           `json:"updated_by" binding:"required"`
}

// EntryPatchBody mutates a single entry
type EntryPatchBody struct {
	EntryID        string  `json:"entry_id" binding:"required,uuid"`
	Amount         *string `json:"amount,omitempty"`
	Subtype        *string `json:"subtype,omitempty"`
	Classification *string `json:"classification,omitempty"`
}

// ApprovalBody represents an approve or reject decision
type ApprovalBody struct {
	ApproverID string `json:"approver_id" binding:"required"`
	Comment    string `json:"comment,omitempty"`
}

// PublishBody represents a publication request with its distribution list
type PublishBody struct {
	PublishedBy string   `json:"published_by" binding:"required"`
	Recipients  []string `json:"recipients,omitempty"`
}

// ExportBody represents a statement export request
type ExportBody struct {
	Format  string            `json:"format" binding:"required"`
	Options map[string]string `json:"options,omitempty"`
}

// DeleteBody carries the actor for an audit-logged deletion
type DeleteBody struct {
	DeletedBy string `json:"deleted_by,omitempty"`
}

// PaginationParams represents pagination query parameters
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

// ListStatementsParams represents statement listing query parameters
type ListStatementsParams struct {
	OrganizationID string `form:"organization_id" binding:"required,uuid"`
	FiscalYearID   string `form:"fiscal_year_id" binding:"omitempty,uuid"`
	Status         string `form:"status"`
	PeriodFrom     string `form:"period_from"` // RFC 3339 date
	PeriodTo       string `form:"period_to"`   // RFC 3339 date
	SortBy         string `form:"sort_by"`
	SortDesc       bool   `form:"sort_desc"`
	Page           int    `form:"page,default=1" binding:"min=1"`
	PerPage        int    `form:"per_page,default=20" binding:"min=1,max=100"`
}
