package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreateRequest() *CreateStatementRequest {
	return &CreateStatementRequest{
		OrganizationID: uuid.New(),
		PeriodEndDate:  time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		RequestedBy:    "controller",
	}
}

func TestCreateStatementRequest_ApplyDefaults(t *testing.T) {
	req := validCreateRequest()
	req.ApplyDefaults()

	assert.Equal(t, FormatClassified, req.Format)
	assert.Equal(t, ClassificationTraditional, req.ClassificationMethod)
	assert.Equal(t, FrameworkIFRS, req.Framework)
	assert.Equal(t, "USD", req.BaseCurrency)
}

func TestCreateStatementRequest_ApplyDefaultsKeepsSetValues(t *testing.T) {
	req := validCreateRequest()
	req.Format = FormatReport
	req.ClassificationMethod = ClassificationLiquidity
	req.Framework = FrameworkGAAP
	req.BaseCurrency = "EUR"
	req.ApplyDefaults()

	assert.Equal(t, FormatReport, req.Format)
	assert.Equal(t, ClassificationLiquidity, req.ClassificationMethod)
	assert.Equal(t, FrameworkGAAP, req.Framework)
	assert.Equal(t, "EUR", req.BaseCurrency)
}

func TestCreateStatementRequest_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		require.NoError(t, req.Validate())
	})

	t.Run("MissingOrganization", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		req.OrganizationID = uuid.Nil
		assert.ErrorIs(t, req.Validate(), ErrMissingOrganization)
	})

	t.Run("MissingPeriodEnd", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		req.PeriodEndDate = time.Time{}
		assert.ErrorIs(t, req.Validate(), ErrMissingPeriodEnd)
	})

	t.Run("UnknownClassification", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		req.ClassificationMethod = "ALPHABETICAL"
		assert.ErrorIs(t, req.Validate(), ErrInvalidClassification)
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		req.Format = "SCROLL"
		assert.ErrorIs(t, req.Validate(), ErrInvalidFormat)
	})

	t.Run("BadCurrency", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		req.BaseCurrency = "DOLLARS"
		assert.ErrorIs(t, req.Validate(), ErrInvalidCurrency)
	})

	t.Run("BadReportingCurrency", func(t *testing.T) {
		req := validCreateRequest()
		req.ApplyDefaults()
		req.ReportingCurrency = "EU"
		assert.ErrorIs(t, req.Validate(), ErrInvalidCurrency)
	})
}

func TestListStatementsQuery_ApplyDefaults(t *testing.T) {
	t.Run("ZeroValues", func(t *testing.T) {
		q := ListStatementsQuery{}
		q.ApplyDefaults()

		assert.Equal(t, 1, q.Page)
		assert.Equal(t, 20, q.PerPage)
		assert.Equal(t, "period_end_date", q.SortBy)
	})

	t.Run("ClampsPerPage", func(t *testing.T) {
		q := ListStatementsQuery{Page: 3, PerPage: 500}
		q.ApplyDefaults()

		assert.Equal(t, 3, q.Page)
		assert.Equal(t, 100, q.PerPage)
	})
}
