package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore-statement-engine/internal/domain/shared"
	"github.com/fincore-statement-engine/internal/domain/statement"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func fixtureStatement() *statement.Statement {
	now := time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)
	st := &statement.Statement{
		ID:                   uuid.New(),
		OrganizationID:       uuid.New(),
		FiscalYearID:         uuid.New(),
		PeriodEndDate:        time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Format:               shared.FormatClassified,
		ClassificationMethod: shared.ClassificationTraditional,
		Framework:            shared.FrameworkIFRS,
		BaseCurrency:         "USD",
		Status:               shared.StatementStatusDraft,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	st.Entries = []statement.Entry{
		{
			ID:          uuid.New(),
			AccountID:   uuid.New(),
			AccountCode: "1000",
			AccountName: "Cash",
			AccountType: shared.AccountTypeAsset,
			Subtype:     shared.SubtypeCurrentAsset,
			Amount:      decimal.NewFromInt(150),
			Currency:    "USD",
		},
	}
	st.Totals = statement.Totals{
		TotalAssets:   decimal.NewFromInt(150),
		CurrentAssets: decimal.NewFromInt(150),
		IsBalanced:    false,
	}
	return st
}

func TestStatementRepository_Insert(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StatementRepository{querier: mock, logger: logger}
	st := fixtureStatement()
	doc, err := marshalDocument(st)
	require.NoError(t, err)

	query := `INSERT INTO statements`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(
				st.ID, st.OrganizationID, st.FiscalYearID, st.PeriodEndDate,
				string(st.Format), string(st.ClassificationMethod), string(st.Framework),
				st.BaseCurrency, st.ReportingCurrency, string(st.Status),
				doc, st.Version, st.CreatedAt, st.UpdatedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Insert(ctx, st)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).WillReturnError(expectedErr)

		err := repo.Insert(ctx, st)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert statement")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatementRepository_Update(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StatementRepository{querier: mock, logger: logger}
	st := fixtureStatement()
	st.Version = 2

	query := `UPDATE statements`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.Update(ctx, st)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version", func(t *testing.T) {
		mock.ExpectExec(query).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, st)
		assert.Error(t, err)
		var concurrent statement.ErrConcurrentModification
		assert.ErrorAs(t, err, &concurrent)
		assert.Equal(t, st.ID, concurrent.StatementID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).WillReturnError(expectedErr)

		err := repo.Update(ctx, st)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to update statement")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func statementRow(st *statement.Statement, doc []byte) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "organization_id", "fiscal_year_id", "period_end_date", "format",
		"classification_method", "framework", "base_currency", "reporting_currency",
		"status", "document", "version", "created_at", "updated_at",
	}).AddRow(
		st.ID, st.OrganizationID, st.FiscalYearID, st.PeriodEndDate, string(st.Format),
		string(st.ClassificationMethod), string(st.Framework), st.BaseCurrency, st.ReportingCurrency,
		string(st.Status), doc, st.Version, st.CreatedAt, st.UpdatedAt,
	)
}

func TestStatementRepository_Get(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StatementRepository{querier: mock, logger: logger}
	st := fixtureStatement()
	doc, err := marshalDocument(st)
	require.NoError(t, err)

	query := `SELECT (.+) FROM statements WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(st.ID).WillReturnRows(statementRow(st, doc))

		got, err := repo.Get(ctx, st.ID)
		require.NoError(t, err)
		assert.Equal(t, st.ID, got.ID)
		assert.Equal(t, shared.StatementStatusDraft, got.Status)
		require.Len(t, got.Entries, 1)
		assert.Equal(t, "1000", got.Entries[0].AccountCode)
		assert.True(t, got.Totals.TotalAssets.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		missing := uuid.New()
		mock.ExpectQuery(query).WithArgs(missing).WillReturnError(pgx.ErrNoRows)

		got, err := repo.Get(ctx, missing)
		assert.Error(t, err)
		assert.Nil(t, got)
		var notFound statement.ErrStatementNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, missing, notFound.StatementID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(query).WithArgs(st.ID).WillReturnError(expectedErr)

		got, err := repo.Get(ctx, st.ID)
		assert.Error(t, err)
		assert.Nil(t, got)
		assert.Contains(t, err.Error(), "failed to get statement")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatementRepository_Query(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StatementRepository{querier: mock, logger: logger}
	st := fixtureStatement()
	doc, err := marshalDocument(st)
	require.NoError(t, err)

	q := shared.ListStatementsQuery{
		OrganizationID: st.OrganizationID,
		Status:         shared.StatementStatusDraft,
		Page:           1,
		PerPage:        20,
		SortBy:         "period_end_date",
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM statements WHERE organization_id = \$1 AND status = \$2`).
			WithArgs(st.OrganizationID, string(shared.StatementStatusDraft)).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
		mock.ExpectQuery(`SELECT (.+) FROM statements WHERE organization_id = \$1 AND status = \$2 ORDER BY period_end_date ASC LIMIT \$3 OFFSET \$4`).
			WithArgs(st.OrganizationID, string(shared.StatementStatusDraft), 20, 0).
			WillReturnRows(statementRow(st, doc))

		items, total, err := repo.Query(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, st.ID, items[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM statements`).WillReturnError(expectedErr)

		items, total, err := repo.Query(ctx, q)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count statements")
		assert.Nil(t, items)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStatementRepository_Delete(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StatementRepository{querier: mock, logger: logger}
	id := uuid.New()

	query := `DELETE FROM statements WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.Delete(ctx, id)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.Delete(ctx, id)
		assert.Error(t, err)
		var notFound statement.ErrStatementNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
