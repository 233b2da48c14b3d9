package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fincore-statement-engine/internal/domain/statement"
)

const (
	// AuditCollectionName is the audit trail collection in MongoDB
	AuditCollectionName = "statement_audit"
	// ReportCollectionName is the validation report collection in MongoDB
	ReportCollectionName = "validation_reports"
)

// AuditRepository implements the statement.AuditArchive interface for
// MongoDB. The archive keeps the complete append-only history even after
// statements are trimmed or deleted from relational storage.
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit archive
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) statement.AuditArchive {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// AppendAudit stores one audit trail entry
func (r *AuditRepository) AppendAudit(ctx context.Context, entry *statement.AuditEntry) error {
	collection := r.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to archive audit entry",
			"statement_id", entry.StatementID.String(),
			"action", entry.Action,
			"error", err)
		return fmt.Errorf("failed to archive audit entry: %w", err)
	}
	return nil
}

// AppendValidationReport stores one validation report
func (r *AuditRepository) AppendValidationReport(ctx context.Context, report *statement.ValidationReport) error {
	collection := r.db.Collection(ReportCollectionName)

	_, err := collection.InsertOne(ctx, report)
	if err != nil {
		r.logger.Error("Failed to archive validation report",
			"statement_id", report.StatementID.String(),
			"error", err)
		return fmt.Errorf("failed to archive validation report: %w", err)
	}
	return nil
}

// GetAuditTrail retrieves paginated audit entries for a statement.
// Results are sorted by timestamp in descending order (newest first).
func (r *AuditRepository) GetAuditTrail(ctx context.Context, statementID uuid.UUID, limit, offset int) ([]*statement.AuditEntry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"statement_id": statementID}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get audit trail",
			"statement_id", statementID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit trail: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []*statement.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		r.logger.Error("Failed to decode audit entries",
			"statement_id", statementID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}

	return entries, nil
}

// GetValidationReports retrieves paginated validation reports for a
// statement, newest first.
func (r *AuditRepository) GetValidationReports(ctx context.Context, statementID uuid.UUID, limit, offset int) ([]*statement.ValidationReport, error) {
	collection := r.db.Collection(ReportCollectionName)

	filter := bson.M{"statement_id": statementID}
	opts := options.Find().
		SetSort(bson.M{"validated_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get validation reports",
			"statement_id", statementID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get validation reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*statement.ValidationReport
	if err := cursor.All(ctx, &reports); err != nil {
		r.logger.Error("Failed to decode validation reports",
			"statement_id", statementID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode validation reports: %w", err)
	}

	return reports, nil
}
