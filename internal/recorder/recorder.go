package recorder

import (
	"context"

	"github.com/google/uuid"

	"FeeRouter/internal/model"
	"FeeRouter/internal/store"
)

// Entry is a persisted event.
type Entry struct {
	ID        int64       `json:"id"`
	RunID     string      `json:"run_id"`
	Kind      string      `json:"kind"`
	Day       uint64      `json:"day"`
	Timestamp int64       `json:"timestamp"`
	Event     model.Event `json:"event"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Day   uint64
	Kind  model.EventKind
	Limit int
}

// Recorder persists audit events. Record is called inside the page
// transaction so events commit with the page.
type Recorder interface {
	Record(ctx context.Context, q store.Querier, runID uuid.UUID, events []model.Event) error
	List(ctx context.Context, q store.Querier, f Filter) ([]Entry, error)
}

// dayOf returns the distribution day an event belongs to.
func dayOf(e model.Event) uint64 {
	switch ev := e.(type) {
	case model.FeesClaimed:
		return ev.Day
	case model.PageSettled:
		return ev.Day
	case model.DayClosed:
		return ev.Day
	default:
		return 0
	}
}
