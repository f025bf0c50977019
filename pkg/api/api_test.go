package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
)

type stubAuth struct{}

func (stubAuth) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[AuthResponse], error) {
	return connect.NewResponse(&AuthResponse{
		User:  User{ID: "u1", Email: req.Msg.Email, DisplayName: req.Msg.DisplayName},
		Token: "tok",
	}), nil
}

func (stubAuth) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[AuthResponse], error) {
	return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid email or password"))
}

func (stubAuth) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return connect.NewResponse(&GetCurrentUserResponse{User: User{ID: "u1", CreatedAt: time.Unix(0, 0).UTC()}}), nil
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := NewAuthServiceHandler(stubAuth{})
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientRoundTrip(t *testing.T) {
	server := setupServer(t)
	client := NewAuthServiceClient(server.Client(), server.URL)

	resp, err := client.Register(context.Background(), connect.NewRequest(&RegisterRequest{
		Email:       "a@example.com",
		DisplayName: "A",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.Msg.User.Email != "a@example.com" || resp.Msg.Token != "tok" {
		t.Errorf("unexpected response: %+v", resp.Msg)
	}

	_, err = client.Login(context.Background(), connect.NewRequest(&LoginRequest{}))
	if connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("Login error code = %v, want unauthenticated", connect.CodeOf(err))
	}
}

// Plain HTTP clients can call procedures with a JSON body.
func TestPlainJSONRequest(t *testing.T) {
	server := setupServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"with body", `{"email":"b@example.com"}`, `"email":"b@example.com"`},
		{"empty body", ``, `"id":"u1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			procedure := AuthServiceRegisterProcedure
			if tt.body == "" {
				procedure = AuthServiceGetCurrentUserProcedure
			}
			resp, err := http.Post(server.URL+procedure, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST failed: %v", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, body %s", resp.StatusCode, body)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body %s does not contain %s", body, tt.want)
			}
		})
	}
}

func TestUnknownProcedure(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Post(server.URL+"/groupcal.v1.AuthService/Nope", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
