package buffer

import (
	"time"

	"github.com/google/uuid"
)

// Eviction is a distributed-cache eviction that failed and waits for replay.
type Eviction struct {
	ID         string    `json:"id"`
	SessionIDs []string  `json:"session_ids,omitempty"`
	UserIDs    []string  `json:"user_ids,omitempty"`
	Retries    int       `json:"retries"`
	Timestamp  time.Time `json:"timestamp"`

	bucketKey []byte
}

// Empty reports whether the eviction names nothing to evict.
func (e *Eviction) Empty() bool {
	return len(e.SessionIDs) == 0 && len(e.UserIDs) == 0
}

func (e *Eviction) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
