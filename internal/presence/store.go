package presence

import (
	"encoding/json"
	"sort"
	"time"
)

// maps cursor ids to their state for a single room.
// Store does no locking; the owning room serializes access.
type Store struct {
	cursors    map[string]*CursorState
	staleAfter time.Duration
}

// creates a new presence store; a non-positive staleAfter uses the default
func NewStore(staleAfter time.Duration) *Store {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	return &Store{
		cursors:    make(map[string]*CursorState),
		staleAfter: staleAfter,
	}
}

// inserts or replaces a cursor, marking it connected.
// last_seen never moves backwards for a cursor that is already present, and
// a cursor introduced by one owner cannot be replaced by another
func (s *Store) Upsert(cursor CursorState) (CursorState, error) {
	if cursor.Color == "" {
		cursor.Color = DefaultColor
	}

	if existing, ok := s.cursors[cursor.CursorID]; ok {
		if existing.Owner != cursor.Owner {
			return *existing, ErrCursorOwned
		}

		if existing.LastSeen.After(cursor.LastSeen) {
			cursor.LastSeen = existing.LastSeen
		}
	}

	cursor.Connected = true
	stored := cursor
	s.cursors[cursor.CursorID] = &stored

	return stored, nil
}

// records a new position and refreshes last_seen for a cursor owner introduced.
// returns ErrCursorOwned, leaving the cursor untouched, when another owner holds it
func (s *Store) Touch(cursorID, owner string, position json.RawMessage, now time.Time) (CursorState, bool, error) {
	cursor, ok := s.cursors[cursorID]
	if !ok {
		return CursorState{}, false, nil
	}

	if cursor.Owner != owner {
		return *cursor, true, ErrCursorOwned
	}

	cursor.Position = position

	if now.After(cursor.LastSeen) {
		cursor.LastSeen = now
	}

	return *cursor, true, nil
}

// returns a copy of the cursor state
func (s *Store) Get(cursorID string) (CursorState, bool) {
	cursor, ok := s.cursors[cursorID]
	if !ok {
		return CursorState{}, false
	}

	return *cursor, true
}

// deletes a cursor and returns its last state
func (s *Store) Remove(cursorID string) (CursorState, bool) {
	cursor, ok := s.cursors[cursorID]
	if !ok {
		return CursorState{}, false
	}

	delete(s.cursors, cursorID)
	cursor.Connected = false

	return *cursor, true
}

// deletes every cursor introduced by the given owner
func (s *Store) RemoveOwnedBy(owner string) []CursorState {
	return s.removeWhere(func(c *CursorState) bool {
		return c.Owner == owner
	})
}

// deletes every cursor that is stale at now
func (s *Store) RemoveStale(now time.Time) []CursorState {
	return s.removeWhere(func(c *CursorState) bool {
		return s.isStale(c, now)
	})
}

// returns the live cursors at now, ordered by cursor id, skipping excludeID
func (s *Store) Active(now time.Time, excludeID string) []CursorState {
	active := make([]CursorState, 0, len(s.cursors))

	for id, cursor := range s.cursors {
		if id == excludeID || s.isStale(cursor, now) {
			continue
		}

		active = append(active, *cursor)
	}

	sortByID(active)
	return active
}

// returns the number of stored cursors, stale ones included
func (s *Store) Len() int {
	return len(s.cursors)
}

func (s *Store) isStale(cursor *CursorState, now time.Time) bool {
	return now.Sub(cursor.LastSeen) > s.staleAfter
}

func (s *Store) removeWhere(match func(*CursorState) bool) []CursorState {
	var removed []CursorState

	for id, cursor := range s.cursors {
		if !match(cursor) {
			continue
		}

		delete(s.cursors, id)
		cursor.Connected = false
		removed = append(removed, *cursor)
	}

	sortByID(removed)
	return removed
}

func sortByID(cursors []CursorState) {
	sort.Slice(cursors, func(i, j int) bool {
		return cursors[i].CursorID < cursors[j].CursorID
	})
}
