package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcal/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call and counts it in
// m, which may be nil. It must run after the auth interceptor to see the user ID.
func LoggingInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			userID := GetUserID(ctx) // empty if pre-auth

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			if err == nil {
				m.RPCHandled(procedure, "ok")
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", duration,
				)
				return resp, nil
			}

			m.RPCHandled(procedure, connect.CodeOf(err).String())
			var connectErr *connect.Error
			if errors.As(err, &connectErr) && connectErr.Code() != connect.CodeInternal {
				slog.Warn("RPC error",
					"procedure", procedure,
					"code", connectErr.Code(),
					"error", connectErr.Message(),
					"user_id", userID,
					"duration_ms", duration,
				)
			} else {
				slog.Error("RPC error",
					"procedure", procedure,
					"error", err,
					"user_id", userID,
					"duration_ms", duration,
				)
			}
			return resp, err
		}
	}
}
