// Package rest implements storage.Store as a client of a remote store API served by
// internal/restapi.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/restapi"
	"github.com/mmynk/groupcal/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store talks to a store API over HTTP.
type Store struct {
	baseURL string
	token   string
	client  *http.Client
}

// New creates a client for the store API rooted at baseURL (e.g. "http://host:8080/store").
func New(baseURL, token string, timeout time.Duration) *Store {
	return NewWithClient(baseURL, token, &http.Client{Timeout: timeout})
}

// NewWithClient is New with a caller supplied HTTP client.
func NewWithClient(baseURL, token string, client *http.Client) *Store {
	return &Store{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// statusError is returned for responses the caller did not expect.
type statusError struct {
	status  int
	code    string
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("store API returned %d: %s", e.status, e.message)
}

// isCode reports whether err is a store API error carrying code. A 404 from a proxy or an
// unmatched route has no code and is a failure, not absence.
func isCode(err error, code string) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == code
}

// do sends body as JSON and decodes a 2xx response into out. Other responses become a
// *statusError.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	se := &statusError{status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr restapi.ErrorResponse
	if err := json.Unmarshal(data, &apiErr); err == nil {
		se.code = apiErr.Code
		se.message = apiErr.Error
	} else {
		se.message = strings.TrimSpace(string(data))
	}
	return se
}

// mutate is do for writes on a single record. A missing record yields storage.ErrNotFound.
func (s *Store) mutate(ctx context.Context, method, path string, body, out any) error {
	err := s.do(ctx, method, path, body, out)
	if isCode(err, restapi.CodeNotFound) {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return err
}

func (s *Store) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	var created restapi.Group
	if err := s.mutate(ctx, http.MethodPost, "/groups", restapi.FromGroup(group), &created); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (s *Store) GetGroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	return s.getGroup(ctx, "/groups/"+url.PathEscape(groupID))
}

func (s *Store) FindGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	if code == "" {
		return nil, nil
	}
	return s.getGroup(ctx, "/invite-codes/"+url.PathEscape(code))
}

func (s *Store) getGroup(ctx context.Context, path string) (*models.Group, error) {
	var group restapi.Group
	err := s.do(ctx, http.MethodGet, path, nil, &group)
	if isCode(err, restapi.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group.ToModel(), nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	var resp []restapi.Group
	if err := s.do(ctx, http.MethodGet, "/groups?member="+url.QueryEscape(userID), nil, &resp); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	groups := make([]*models.Group, len(resp))
	for i := range resp {
		groups[i] = resp[i].ToModel()
	}
	return groups, nil
}

func (s *Store) UpdateGroup(ctx context.Context, groupID string, update models.GroupUpdate) error {
	path := "/groups/" + url.PathEscape(groupID)
	if err := s.mutate(ctx, http.MethodPatch, path, restapi.FromGroupUpdate(update), nil); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.mutate(ctx, http.MethodDelete, "/groups/"+url.PathEscape(groupID), nil, nil); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (s *Store) JoinGroup(ctx context.Context, groupID, userID, inviteCode string) error {
	body := restapi.JoinRequest{InviteCode: inviteCode}
	if err := s.mutate(ctx, http.MethodPut, memberPath(groupID, userID), body, nil); err != nil {
		return fmt.Errorf("join group: %w", err)
	}
	return nil
}

func (s *Store) LeaveGroup(ctx context.Context, groupID, userID string) error {
	if err := s.mutate(ctx, http.MethodDelete, memberPath(groupID, userID), nil, nil); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.do(ctx, http.MethodPost, "/users", restapi.FromUser(user), nil)
	if isCode(err, restapi.CodeEmailExists) {
		return storage.ErrEmailExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "/users?email="+url.QueryEscape(email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "/users/"+url.PathEscape(id))
}

func (s *Store) getUser(ctx context.Context, path string) (*models.User, error) {
	var user restapi.User
	err := s.do(ctx, http.MethodGet, path, nil, &user)
	if isCode(err, restapi.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user.ToModel(), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var resp restapi.UsersResponse
	if err := s.do(ctx, http.MethodPost, "/users/batch", restapi.UsersRequest{IDs: ids}, &resp); err != nil {
		return nil, fmt.Errorf("get users by IDs: %w", err)
	}
	for id, u := range resp.Users {
		users[id] = u.ToModel()
	}
	return users, nil
}

func memberPath(groupID, userID string) string {
	return "/groups/" + url.PathEscape(groupID) + "/members/" + url.PathEscape(userID)
}
