package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// parent chains deeper than this are treated as having no inherited access
const maxTreeDepth = 64

type documentRow struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID   int64  `gorm:"column:owner_id;not null;index"`
	ParentID  *int64 `gorm:"column:parent_id;index"`
	Content   string `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

type accessRightRow struct {
	DocumentID      int64 `gorm:"column:document_id;primaryKey"`
	UserID          int64 `gorm:"column:user_id;primaryKey"`
	IncludeChildren bool  `gorm:"column:include_children;not null;default:false"`
}

func (accessRightRow) TableName() string {
	return "document_access_rights"
}

type historyRow struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	DocumentID int64     `gorm:"column:document_id;not null;index:document_history_lookup_idx,priority:1"`
	UserID     int64     `gorm:"column:user_id;not null;index:document_history_lookup_idx,priority:2"`
	ActionType string    `gorm:"column:action_type;size:32;not null;index:document_history_lookup_idx,priority:3"`
	Changes    string    `gorm:"column:changes;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index:document_history_lookup_idx,priority:4"`
}

func (historyRow) TableName() string {
	return "document_history"
}

// embedded sqlite document repository
type SQLiteRepository struct {
	db *gorm.DB
}

// opens a sqlite database at path and migrates the document tables
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&documentRow{}, &accessRightRow{}, &historyRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document schema: %w", err)
	}

	return db, nil
}

// creates a new sqlite document repository over a migrated database
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateDocument(ctx context.Context, doc *Document) (*Document, error) {
	row := documentRow{
		OwnerID:  doc.OwnerID,
		ParentID: doc.ParentID,
		Content:  string(emptyContent(doc.Content)),
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return row.toDocument(), nil
}

func (r *SQLiteRepository) GetDocument(ctx context.Context, documentID int64) (*Document, error) {
	var row documentRow

	err := r.db.WithContext(ctx).Take(&row, "id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get document %d: %w", documentID, err)
	}

	return row.toDocument(), nil
}

func (r *SQLiteRepository) SaveContent(ctx context.Context, documentID int64, content json.RawMessage) error {
	result := r.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("id = ?", documentID).
		Updates(map[string]any{
			"content":    string(emptyContent(content)),
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to save document %d: %w", documentID, result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *SQLiteRepository) AppendHistory(ctx context.Context, record *HistoryRecord) (*HistoryRecord, error) {
	if !IsValidAction(record.ActionType) {
		return nil, fmt.Errorf("invalid history action %q", record.ActionType)
	}

	row := historyRow{
		DocumentID: record.DocumentID,
		UserID:     record.UserID,
		ActionType: record.ActionType,
		Changes:    string(emptyContent(record.Changes)),
		CreatedAt:  record.CreatedAt,
	}

	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to append history: %w", err)
	}

	return row.toRecord(), nil
}

func (r *SQLiteRepository) LastHistoryAt(ctx context.Context, documentID, userID int64, actionType string) (time.Time, bool, error) {
	var row historyRow

	err := r.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ? AND action_type = ?", documentID, userID, actionType).
		Order("created_at DESC").
		Take(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}

	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last history: %w", err)
	}

	return row.CreatedAt, true, nil
}

func (r *SQLiteRepository) ListHistory(ctx context.Context, documentID int64, limit int) ([]*HistoryRecord, error) {
	var rows []historyRow

	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	records := make([]*HistoryRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toRecord())
	}

	return records, nil
}

func (r *SQLiteRepository) GrantAccess(ctx context.Context, documentID, userID int64, includeChildren bool) error {
	row := accessRightRow{
		DocumentID:      documentID,
		UserID:          userID,
		IncludeChildren: includeChildren,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "document_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"include_children"}),
		}).
		Create(&row).Error

	if err != nil {
		return fmt.Errorf("failed to grant access: %w", err)
	}

	return nil
}

// walks from the document up through its parents looking for ownership or a grant
func (r *SQLiteRepository) UserHasAccess(ctx context.Context, userID, documentID int64) (bool, error) {
	db := r.db.WithContext(ctx)
	currentID := documentID

	for depth := 0; depth < maxTreeDepth; depth++ {
		var doc documentRow

		err := db.Take(&doc, "id = ?", currentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}

		if err != nil {
			return false, fmt.Errorf("failed to check access: %w", err)
		}

		if depth == 0 && doc.OwnerID == userID {
			return true, nil
		}

		var grant accessRightRow

		err = db.Take(&grant, "document_id = ? AND user_id = ?", currentID, userID).Error
		switch {
		case err == nil:
			if depth == 0 || grant.IncludeChildren {
				return true, nil
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return false, fmt.Errorf("failed to check access: %w", err)
		}

		if doc.ParentID == nil {
			return false, nil
		}

		currentID = *doc.ParentID
	}

	return false, nil
}

func (row documentRow) toDocument() *Document {
	return &Document{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		ParentID:  row.ParentID,
		Content:   json.RawMessage(row.Content),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (row historyRow) toRecord() *HistoryRecord {
	return &HistoryRecord{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		UserID:     row.UserID,
		ActionType: row.ActionType,
		Changes:    json.RawMessage(row.Changes),
		CreatedAt:  row.CreatedAt,
	}
}
