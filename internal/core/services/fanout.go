package services

import (
	"context"
	"errors"

	"mlboard/internal/core/domain"
	"mlboard/internal/core/ports"
)

// FanOut publishes every event to each of its publishers. All publishers are
// tried; their errors are joined.
type FanOut []ports.EventPublisher

func (f FanOut) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
