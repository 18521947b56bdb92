package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/docflow/server/docflow/documents"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	content  map[int64]json.RawMessage
	history  []*documents.HistoryRecord
	getErr   error
	saveErr  error
	saveHits int
}

func newFakeStore() *fakeStore {
	return &fakeStore{content: make(map[int64]json.RawMessage)}
}

func (f *fakeStore) GetDocument(_ context.Context, id int64) (*documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}

	content, ok := f.content[id]
	if !ok {
		return nil, documents.ErrNotFound
	}

	return &documents.Document{ID: id, Content: content}, nil
}

func (f *fakeStore) SaveContent(_ context.Context, id int64, content json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveHits++
	if f.saveErr != nil {
		return f.saveErr
	}

	f.content[id] = content
	return nil
}

func (f *fakeStore) AppendHistory(_ context.Context, rec *documents.HistoryRecord) (*documents.HistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.history = append(f.history, rec)
	return rec, nil
}

func (f *fakeStore) records() []*documents.HistoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*documents.HistoryRecord(nil), f.history...)
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		next     string
		want     string
	}{
		{"empty object", `{}`, `{"title":"A","blocks":[{"text":"x"}]}`, documents.ActionCreate},
		{"absent content", ``, `{"blocks":[]}`, documents.ActionCreate},
		{"null blocks", `{"title":"A","blocks":null}`, `{"title":"A","blocks":[1]}`, documents.ActionCreate},
		{"empty blocks", `{"title":"A","blocks":[]}`, `{"title":"B","blocks":[]}`, documents.ActionCreate},
		{"title only", `{"title":"A","blocks":[{"text":"x"}]}`, `{"title":"B","blocks":[{"text":"x"}]}`, documents.ActionTitleChange},
		{"blocks changed", `{"title":"A","blocks":[{"text":"x"}]}`, `{"title":"A","blocks":[{"text":"y"}]}`, documents.ActionEdit},
		{"title and blocks changed", `{"title":"A","blocks":[{"text":"x"}]}`, `{"title":"B","blocks":[{"text":"y"}]}`, documents.ActionEdit},
		{"nothing changed", `{"title":"A","blocks":[{"text":"x"}]}`, `{"title":"A","blocks":[{"text":"x"}]}`, documents.ActionEdit},
		{"key order ignored", `{"title":"A","blocks":[{"a":1,"b":2}]}`, `{"blocks":[{"b":2,"a":1}],"title":"B"}`, documents.ActionTitleChange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(json.RawMessage(tt.previous), json.RawMessage(tt.next)))
		})
	}
}

func TestPolicy_EditHistoryWindow(t *testing.T) {
	tests := []struct {
		name         string
		secondAt     time.Duration
		wantRecorded bool
	}{
		{"inside window is suppressed", 120 * time.Second, false},
		{"after window is recorded", 301 * time.Second, true},
	}

	throttles := map[string]func(store *fakeStore) Throttle{
		"memory": func(*fakeStore) Throttle { return NewMemoryThrottle(DefaultEditWindow) },
		"store": func(store *fakeStore) Throttle {
			return NewStoreThrottle(historyLookup{store}, DefaultEditWindow)
		},
	}

	for throttleName, newThrottle := range throttles {
		for _, tt := range tests {
			t.Run(throttleName+"/"+tt.name, func(t *testing.T) {
				ctx := context.Background()
				store := newFakeStore()
				store.content[1] = json.RawMessage(`{"title":"A","blocks":[{"text":"x"}]}`)

				clock := &fixedClock{now: t0}
				policy := NewPolicy(store, newThrottle(store), clock.Now)

				first, err := policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 7, Username: "alice", Content: json.RawMessage(`{"title":"A","blocks":[{"text":"xy"}]}`)})
				require.NoError(t, err)
				assert.Equal(t, documents.ActionEdit, first.Action)
				assert.True(t, first.HistoryRecorded)

				clock.now = t0.Add(tt.secondAt)

				second, err := policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 7, Username: "alice", Content: json.RawMessage(`{"title":"A","blocks":[{"text":"xyz"}]}`)})
				require.NoError(t, err)
				assert.Equal(t, documents.ActionEdit, second.Action)
				assert.Equal(t, tt.wantRecorded, second.HistoryRecorded)

				// content is saved either way
				assert.JSONEq(t, `{"title":"A","blocks":[{"text":"xyz"}]}`, string(store.content[1]))

				want := 1
				if tt.wantRecorded {
					want = 2
				}
				assert.Len(t, store.records(), want)
			})
		}
	}
}

func TestPolicy_WindowIsPerUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.content[1] = json.RawMessage(`{"blocks":[1]}`)

	clock := &fixedClock{now: t0}
	policy := NewPolicy(store, NewMemoryThrottle(DefaultEditWindow), clock.Now)

	_, err := policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 1, Content: json.RawMessage(`{"blocks":[2]}`)})
	require.NoError(t, err)

	clock.now = t0.Add(10 * time.Second)
	res, err := policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 2, Content: json.RawMessage(`{"blocks":[3]}`)})
	require.NoError(t, err)
	assert.True(t, res.HistoryRecorded)
}

func TestPolicy_CreateAndTitleChangeNeverSuppressed(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.content[1] = json.RawMessage(`{}`)

	clock := &fixedClock{now: t0}
	policy := NewPolicy(store, NewMemoryThrottle(DefaultEditWindow), clock.Now)

	res, err := policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 1, Username: "alice", Content: json.RawMessage(`{"title":"A","blocks":[{"text":"x"}]}`)})
	require.NoError(t, err)
	assert.Equal(t, documents.ActionCreate, res.Action)
	assert.True(t, res.HistoryRecorded)

	clock.now = t0.Add(time.Second)
	res, err = policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 1, Content: json.RawMessage(`{"title":"B","blocks":[{"text":"x"}]}`)})
	require.NoError(t, err)
	assert.Equal(t, documents.ActionTitleChange, res.Action)
	assert.True(t, res.HistoryRecorded)

	clock.now = t0.Add(2 * time.Second)
	res, err = policy.ApplyEdit(ctx, Edit{DocumentID: 1, UserID: 1, Content: json.RawMessage(`{"title":"C","blocks":[{"text":"x"}]}`)})
	require.NoError(t, err)
	assert.True(t, res.HistoryRecorded)

	records := store.records()
	require.Len(t, records, 3)

	var changes documents.Changes
	require.NoError(t, json.Unmarshal(records[0].Changes, &changes))
	assert.Equal(t, int64(1), changes.UserID)
	assert.Equal(t, "alice", changes.Username)
	assert.Equal(t, documents.ActionCreate, changes.Action)
	assert.Equal(t, t0, records[0].CreatedAt)
}

func TestPolicy_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid content", func(t *testing.T) {
		store := newFakeStore()
		store.content[1] = json.RawMessage(`{}`)

		_, err := NewPolicy(store, nil, nil).ApplyEdit(ctx, Edit{DocumentID: 1, Content: json.RawMessage(`[1,2]`)})
		assert.ErrorIs(t, err, ErrInvalidContent)
		assert.Equal(t, 0, store.saveHits)
	})

	t.Run("missing document", func(t *testing.T) {
		_, err := NewPolicy(newFakeStore(), nil, nil).ApplyEdit(ctx, Edit{DocumentID: 9, Content: json.RawMessage(`{}`)})
		assert.ErrorIs(t, err, documents.ErrNotFound)
	})

	t.Run("save failure skips history", func(t *testing.T) {
		store := newFakeStore()
		store.content[1] = json.RawMessage(`{}`)
		store.saveErr = errors.New("connection reset")

		_, err := NewPolicy(store, nil, nil).ApplyEdit(ctx, Edit{DocumentID: 1, Content: json.RawMessage(`{"blocks":[1]}`)})
		assert.Error(t, err)
		assert.Empty(t, store.records())
	})

	t.Run("throttle failure records anyway", func(t *testing.T) {
		store := newFakeStore()
		store.content[1] = json.RawMessage(`{"blocks":[1]}`)

		res, err := NewPolicy(store, failingThrottle{}, nil).ApplyEdit(ctx, Edit{DocumentID: 1, Content: json.RawMessage(`{"blocks":[2]}`)})
		require.NoError(t, err)
		assert.True(t, res.HistoryRecorded)
	})
}

func TestStoreThrottle_WithSQLite(t *testing.T) {
	ctx := context.Background()

	db, err := documents.OpenSQLite(filepath.Join(t.TempDir(), "throttle.db"))
	require.NoError(t, err)
	repo := documents.NewSQLiteRepository(db)

	doc, err := repo.CreateDocument(ctx, &documents.Document{OwnerID: 1, Content: json.RawMessage(`{"blocks":[1]}`)})
	require.NoError(t, err)

	clock := &fixedClock{now: t0}
	policy := NewPolicy(repo, NewStoreThrottle(repo, DefaultEditWindow), clock.Now)

	edit := Edit{DocumentID: doc.ID, UserID: 1, Username: "alice", Content: json.RawMessage(`{"blocks":[2]}`)}

	res, err := policy.ApplyEdit(ctx, edit)
	require.NoError(t, err)
	assert.True(t, res.HistoryRecorded)

	clock.now = t0.Add(120 * time.Second)
	edit.Content = json.RawMessage(`{"blocks":[3]}`)
	res, err = policy.ApplyEdit(ctx, edit)
	require.NoError(t, err)
	assert.False(t, res.HistoryRecorded)

	clock.now = t0.Add(301 * time.Second)
	edit.Content = json.RawMessage(`{"blocks":[4]}`)
	res, err = policy.ApplyEdit(ctx, edit)
	require.NoError(t, err)
	assert.True(t, res.HistoryRecorded)

	records, err := repo.ListHistory(ctx, doc.ID, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRedisKey(t *testing.T) {
	key := Key{DocumentID: 12, UserID: 3, Action: documents.ActionEdit}
	assert.Equal(t, "docflow:history:12:3:edit", redisKey(key))
}

type historyLookup struct {
	store *fakeStore
}

func (h historyLookup) LastHistoryAt(_ context.Context, documentID, userID int64, action string) (time.Time, bool, error) {
	var (
		last  time.Time
		found bool
	)

	for _, rec := range h.store.records() {
		if rec.DocumentID == documentID && rec.UserID == userID && rec.ActionType == action && rec.CreatedAt.After(last) {
			last = rec.CreatedAt
			found = true
		}
	}

	return last, found, nil
}

type failingThrottle struct{}

func (failingThrottle) Allow(context.Context, Key, time.Time) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func (failingThrottle) Record(context.Context, Key, time.Time) error {
	return nil
}
