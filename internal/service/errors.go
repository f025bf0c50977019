package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcal/internal/invite"
	"github.com/mmynk/groupcal/internal/middleware"
	"github.com/mmynk/groupcal/internal/storage"
)

var (
	errGroupNotFound   = errors.New("group not found")
	errNotOwner        = errors.New("only the group owner can do this")
	errInternal        = errors.New("something went wrong, please try again")
	errNameRequired    = errors.New("group name is required")
	errNothingToUpdate = errors.New("nothing to update")
	errNotLoggedIn     = errors.New("not logged in")
	errGroupIDRequired = errors.New("group_id required")
)

// toConnectError maps domain errors to Connect codes. Unexpected errors are logged and
// replaced by a generic message so store details never reach the client.
func toConnectError(logger *slog.Logger, op string, err error) error {
	var connectErr *connect.Error
	switch {
	case errors.As(err, &connectErr):
		return connectErr
	case errors.Is(err, invite.ErrInvalidCodeLength):
		return connect.NewError(connect.CodeInvalidArgument, invite.ErrInvalidCodeLength)
	case errors.Is(err, invite.ErrNoGroupFound):
		return connect.NewError(connect.CodeNotFound, invite.ErrNoGroupFound)
	case errors.Is(err, invite.ErrGroupNotFound), errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, errGroupNotFound)
	case errors.Is(err, invite.ErrCodeExpired):
		return connect.NewError(connect.CodeFailedPrecondition, invite.ErrCodeExpired)
	default:
		logger.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, errInternal)
	}
}

// callerID returns the authenticated user or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errNotLoggedIn)
	}
	return userID, nil
}
