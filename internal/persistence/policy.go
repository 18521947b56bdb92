package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codeberg.org/docflow/server/docflow/documents"
	"codeberg.org/docflow/server/internal/logger"
)

// decides how an incoming edit is stored and recorded in history
type Policy struct {
	store    Store
	throttle Throttle
	clock    func() time.Time
}

// creates a new persistence policy; a nil throttle never suppresses
func NewPolicy(store Store, throttle Throttle, clock func() time.Time) *Policy {
	if clock == nil {
		clock = time.Now
	}

	return &Policy{
		store:    store,
		throttle: throttle,
		clock:    clock,
	}
}

// saves the edit (last write wins) and appends history unless throttled
func (p *Policy) ApplyEdit(ctx context.Context, edit Edit) (Result, error) {
	if !isJSONObject(edit.Content) {
		return Result{}, ErrInvalidContent
	}

	doc, err := p.store.GetDocument(ctx, edit.DocumentID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load document: %w", err)
	}

	action := Classify(doc.Content, edit.Content)
	result := Result{Action: action}

	if err := p.store.SaveContent(ctx, edit.DocumentID, edit.Content); err != nil {
		return result, fmt.Errorf("failed to save document: %w", err)
	}

	now := p.clock()
	key := Key{DocumentID: edit.DocumentID, UserID: edit.UserID, Action: action}

	if action == documents.ActionEdit && !p.allow(ctx, key, now) {
		logger.Debug("skipping edit history inside throttle window",
			"document_id", edit.DocumentID,
			"user_id", edit.UserID,
		)
		return result, nil
	}

	changes, err := json.Marshal(documents.Changes{
		Content:  edit.Content,
		UserID:   edit.UserID,
		Username: edit.Username,
		Action:   action,
	})
	if err != nil {
		return result, fmt.Errorf("failed to encode history changes: %w", err)
	}

	_, err = p.store.AppendHistory(ctx, &documents.HistoryRecord{
		DocumentID: edit.DocumentID,
		UserID:     edit.UserID,
		ActionType: action,
		Changes:    changes,
		CreatedAt:  now,
	})
	if err != nil {
		return result, fmt.Errorf("failed to append history: %w", err)
	}

	result.HistoryRecorded = true

	if action == documents.ActionEdit && p.throttle != nil {
		if err := p.throttle.Record(ctx, key, now); err != nil {
			logger.ErrorErr(err, "failed to record history throttle", "key", key.String())
		}
	}

	return result, nil
}

// a failing throttle lets the record through
func (p *Policy) allow(ctx context.Context, key Key, now time.Time) bool {
	if p.throttle == nil {
		return true
	}

	allowed, err := p.throttle.Allow(ctx, key, now)
	if err != nil {
		logger.ErrorErr(err, "history throttle unavailable, recording edit", "key", key.String())
		return true
	}

	return allowed
}
