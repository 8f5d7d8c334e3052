package memory

import (
	"context"
	"errors"

	"github.com/italolelis/tg_file_listener/internal/storage"
	"github.com/italolelis/tg_file_listener/internal/telemetry"
)

// InstrumentedLinkRegistry wraps LinkRegistry with telemetry.
type InstrumentedLinkRegistry struct {
	registry  *LinkRegistry
	telemetry *telemetry.Telemetry
}

// NewInstrumentedLinkRegistry creates a new instrumented link registry.
func NewInstrumentedLinkRegistry(registry *LinkRegistry, tel *telemetry.Telemetry) *InstrumentedLinkRegistry {
	return &InstrumentedLinkRegistry{
		registry:  registry,
		telemetry: tel,
	}
}

// Put stores a link with telemetry.
func (r *InstrumentedLinkRegistry) Put(ctx context.Context, fileID string, record storage.LinkRecord) {
	_ = r.telemetry.InstrumentRegistryOperation(ctx, "put", func(ctx context.Context) error {
		r.registry.Put(ctx, fileID, record)

		return nil
	})

	r.telemetry.RecordLinkRegistered(r.registry.Len())
}

// Get looks up a link with telemetry. A miss is recorded as a lookup result, not an error.
func (r *InstrumentedLinkRegistry) Get(ctx context.Context, fileID string) (storage.LinkRecord, error) {
	var result storage.LinkRecord

	var err error

	_ = r.telemetry.InstrumentRegistryOperation(ctx, "get", func(ctx context.Context) error {
		result, err = r.registry.Get(ctx, fileID)

		return nil
	})

	switch {
	case errors.Is(err, storage.ErrLinkNotFound):
		r.telemetry.RecordLinkLookup("miss")
	case err != nil:
		r.telemetry.RecordLinkLookup("error")
	default:
		r.telemetry.RecordLinkLookup("hit")
	}

	return result, err
}

// Len returns the number of registered links.
func (r *InstrumentedLinkRegistry) Len() int {
	return r.registry.Len()
}

var _ storage.LinkRepository = (*InstrumentedLinkRegistry)(nil)
