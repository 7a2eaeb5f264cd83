package tracker

import (
	"errors"

	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/shard"

	"github.com/gofiber/fiber/v2"
)

var errBadRequest = errors.New("bad request")

// statusOf maps a service error to an HTTP status.
func statusOf(err error) int {
	var expansion *shard.ExpansionError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, reconcile.ErrNoHandler),
		errors.Is(err, shard.ErrNotRangePolicy):
		return fiber.StatusBadRequest
	case errors.Is(err, reconcile.ErrUnknownTracker),
		errors.Is(err, repo.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, reconcile.ErrBusy),
		errors.As(err, &expansion) && expansion.Err == nil:
		return fiber.StatusConflict
	case errors.Is(err, ErrReadOnly):
		return fiber.StatusForbidden
	case repo.IsFetchError(err):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}
