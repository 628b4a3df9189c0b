package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/pkg/util"
)

const (
	maxPageSize            = 200
	defaultRequestPageSize = 50
	defaultUserPageSize    = 20
)

// Page is a slice of results plus the paging window that produced it.
type Page[T any] struct {
	Items    []T
	Page     int
	PageSize int
	Total    int
}

// normalizePage clamps page to >= 1 and size to [1, maxPageSize]; a zero
// size selects def.
func normalizePage(page, size, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size == 0 {
		size = def
	}
	if size < 1 {
		size = 1
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func requireAdmin(caller domain.Caller) error {
	if !caller.IsAdmin() {
		return util.NewForbidden("Admin access required")
	}
	return nil
}

// notFoundOr converts repository.ErrNotFound into a typed 404 for resource.
func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return util.NewNotFound(resource, details)
	}
	return util.MapError(err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func actorID(caller domain.Caller) *string {
	if caller.ID == "" {
		return nil
	}
	id := caller.ID
	return &id
}
