package recorder

import (
	"context"

	"github.com/google/uuid"

	"FeeRouter/internal/model"
	"FeeRouter/internal/store"
)

// NoopRecorder discards events. Used when event history is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(context.Context, store.Querier, uuid.UUID, []model.Event) error {
	return nil
}

func (n *NoopRecorder) List(context.Context, store.Querier, Filter) ([]Entry, error) {
	return nil, nil
}
