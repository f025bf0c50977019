package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcal/internal/auth"
	"github.com/mmynk/groupcal/internal/metrics"
	"github.com/mmynk/groupcal/internal/models"
)

type captured struct {
	userID string
	email  string
	called bool
}

func captureNext(c *captured) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		c.called = true
		c.userID = GetUserID(ctx)
		c.email = GetEmail(ctx)
		return connect.NewResponse(&struct{}{}), nil
	}
}

func newRequest(authHeader string) connect.AnyRequest {
	req := connect.NewRequest(&struct{}{})
	if authHeader != "" {
		req.Header().Set("Authorization", authHeader)
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name     string
		header   string
		wantCode connect.Code
	}{
		{"valid", "Bearer " + token, 0},
		{"lowercase scheme", "bearer " + token, 0},
		{"missing", "", connect.CodeUnauthenticated},
		{"wrong scheme", "Basic " + token, connect.CodeUnauthenticated},
		{"bad token", "Bearer nope", connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c captured
			_, err := RequireAuth(jwtManager)(captureNext(&c))(context.Background(), newRequest(tt.header))
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if c.userID != "u1" || c.email != "u1@example.com" {
					t.Errorf("context user = %q/%q", c.userID, c.email)
				}
				return
			}
			if connect.CodeOf(err) != tt.wantCode {
				t.Errorf("code = %v, want %v", connect.CodeOf(err), tt.wantCode)
			}
			if c.called {
				t.Error("next was called for a rejected request")
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u1", Email: "u1@example.com"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var c captured
	if _, err := OptionalAuth(jwtManager)(captureNext(&c))(context.Background(), newRequest("Bearer "+token)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.userID != "u1" {
		t.Errorf("userID = %q, want u1", c.userID)
	}

	c = captured{}
	if _, err := OptionalAuth(jwtManager)(captureNext(&c))(context.Background(), newRequest("Bearer junk")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.called || c.userID != "" {
		t.Errorf("invalid token should pass through anonymously, got %+v", c)
	}
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	m := metrics.New()
	want := connect.NewError(connect.CodeNotFound, errors.New("group not found"))

	failing := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, want
	}
	_, err := LoggingInterceptor(m)(failing)(context.Background(), newRequest(""))
	if !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}

	var c captured
	if _, err := LoggingInterceptor(nil)(captureNext(&c))(WithUser(context.Background(), "u1", "e"), newRequest("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.userID != "u1" {
		t.Errorf("user ID lost through interceptor: %q", c.userID)
	}
}
