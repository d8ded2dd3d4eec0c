package session

import (
	"slices"
	"time"

	"github.com/Anzelak/goblin-ball/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the JSON document stored per session. A match is
// deterministic given its spec, so the number of steps taken is enough to
// rebuild the exact state.
type PersistedSessionData struct {
	ID             string            `json:"id"`
	Spec           service.MatchSpec `json:"spec"`
	Steps          int               `json:"steps"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
}

func sortByCreation(sessions []*service.Session) {
	slices.SortStableFunc(sessions, func(a, b *service.Session) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
