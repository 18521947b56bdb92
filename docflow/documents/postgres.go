package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgres-backed document repository
type PostgresRepository struct {
	db *pgxpool.Pool
}

// creates a new postgres document repository
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// creates the document tables when they do not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure document schema: %w", err)
	}

	return nil
}

func (r *PostgresRepository) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	var created Document

	err := r.db.QueryRow(
		ctx,
		queryCreateDocument,
		doc.OwnerID,
		doc.ParentID,
		[]byte(emptyContent(doc.Content)),
	).Scan(
		&created.ID,
		&created.OwnerID,
		&created.ParentID,
		&created.Content,
		&created.CreatedAt,
		&created.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return &created, nil
}

func (r *PostgresRepository) GetDocument(ctx context.Context, documentID int64) (*Document, error) {
	var doc Document

	err := r.db.QueryRow(ctx, queryGetDocument, documentID).Scan(
		&doc.ID,
		&doc.OwnerID,
		&doc.ParentID,
		&doc.Content,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", documentID, err)
	}

	return &doc, nil
}

func (r *PostgresRepository) SaveContent(ctx context.Context, documentID int64, content json.RawMessage) error {
	tag, err := r.db.Exec(ctx, querySaveContent, documentID, []byte(emptyContent(content)))
	if err != nil {
		return fmt.Errorf("failed to save document %d: %w", documentID, err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) AppendHistory(ctx context.Context, record *HistoryRecord) (*HistoryRecord, error) {
	if !IsValidAction(record.ActionType) {
		return nil, fmt.Errorf("invalid history action %q", record.ActionType)
	}

	var createdAt *time.Time
	if !record.CreatedAt.IsZero() {
		createdAt = &record.CreatedAt
	}

	saved := *record
	saved.Changes = emptyContent(record.Changes)

	err := r.db.QueryRow(
		ctx,
		queryAppendHistory,
		record.DocumentID,
		record.UserID,
		record.ActionType,
		[]byte(saved.Changes),
		createdAt,
	).Scan(&saved.ID, &saved.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	return &saved, nil
}

func (r *PostgresRepository) LastHistoryAt(ctx context.Context, documentID, userID int64, actionType string) (time.Time, bool, error) {
	var createdAt time.Time

	err := r.db.QueryRow(ctx, queryLastHistoryAt, documentID, userID, actionType).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}

	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last history: %w", err)
	}

	return createdAt, true, nil
}

func (r *PostgresRepository) ListHistory(ctx context.Context, documentID int64, limit int) ([]*HistoryRecord, error) {
	rows, err := r.db.Query(ctx, queryListHistory, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var records []*HistoryRecord

	for rows.Next() {
		var rec HistoryRecord

		if err := rows.Scan(
			&rec.ID,
			&rec.DocumentID,
			&rec.UserID,
			&rec.ActionType,
			&rec.Changes,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (r *PostgresRepository) GrantAccess(ctx context.Context, documentID, userID int64, includeChildren bool) error {
	if _, err := r.db.Exec(ctx, queryGrantAccess, documentID, userID, includeChildren); err != nil {
		return fmt.Errorf("failed to grant access: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UserHasAccess(ctx context.Context, userID, documentID int64) (bool, error) {
	var allowed bool

	if err := r.db.QueryRow(ctx, queryUserHasAccess, userID, documentID).Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to check access: %w", err)
	}

	return allowed, nil
}
