package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcal/internal/invite"
	"github.com/mmynk/groupcal/internal/models"
	"github.com/mmynk/groupcal/internal/storage"
	"github.com/mmynk/groupcal/pkg/api"
)

var _ api.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService.
type GroupService struct {
	store   storage.Store
	invites *invite.Manager
	joiner  *invite.Joiner
	logger  *slog.Logger
}

// NewGroupService creates a GroupService. invites and joiner must share store.
func NewGroupService(store storage.Store, invites *invite.Manager, joiner *invite.Joiner, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:   store,
		invites: invites,
		joiner:  joiner,
		logger:  logger,
	}
}

// CreateGroup creates a group owned by the caller, who becomes its first member. The group
// starts with a short invite code.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	s.logger.Info("CreateGroup request received", "name", name, "user_id", userID)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNameRequired)
	}

	code, codeCreatedAt, err := s.invites.InitialCode()
	if err != nil {
		return nil, toConnectError(s.logger, "CreateGroup", err)
	}

	group := &models.Group{
		Name:                name,
		Description:         strings.TrimSpace(req.Msg.Description),
		Members:             map[string]bool{userID: true},
		CreatedBy:           userID,
		InviteCode:          code,
		InviteCodeCreatedAt: &codeCreatedAt,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, toConnectError(s.logger, "CreateGroup", err)
	}

	s.logger.Info("Group created", "group_id", group.ID)

	apiGroup, err := s.toAPIGroup(ctx, group, userID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.CreateGroupResponse{Group: apiGroup, InviteCode: code}), nil
}

// GetGroup returns a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	apiGroup, err := s.toAPIGroup(ctx, group, userID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: apiGroup}), nil
}

// ListGroups returns the caller's groups with the caller's role in each.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "ListGroups", err)
	}

	names, err := s.displayNames(ctx, groups...)
	if err != nil {
		return nil, toConnectError(s.logger, "ListGroups", err)
	}

	resp := &api.ListGroupsResponse{Groups: make([]api.Group, len(groups))}
	for i, group := range groups {
		resp.Groups[i] = buildAPIGroup(group, userID, names)
	}

	s.logger.Info("ListGroups successful", "user_id", userID, "count", len(groups))
	return connect.NewResponse(resp), nil
}

// UpdateGroup changes a group's name or description. Any member may do this.
func (s *GroupService) UpdateGroup(ctx context.Context, req *connect.Request[api.UpdateGroupRequest]) (*connect.Response[api.UpdateGroupResponse], error) {
	userID, group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	var update models.GroupUpdate
	if req.Msg.Name != nil {
		name := strings.TrimSpace(*req.Msg.Name)
		if name == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errNameRequired)
		}
		update.Name = &name
	}
	if req.Msg.Description != nil {
		description := strings.TrimSpace(*req.Msg.Description)
		update.Description = &description
	}
	if update.IsEmpty() {
		return nil, connect.NewError(connect.CodeInvalidArgument, errNothingToUpdate)
	}

	if err := s.store.UpdateGroup(ctx, group.ID, update); err != nil {
		return nil, toConnectError(s.logger, "UpdateGroup", err)
	}

	updated, err := s.store.GetGroupByID(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "UpdateGroup", err)
	}
	if updated == nil {
		return nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
	}

	s.logger.Info("Group updated", "group_id", group.ID, "user_id", userID)

	apiGroup, err := s.toAPIGroup(ctx, updated, userID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.UpdateGroupResponse{Group: apiGroup}), nil
}

// DeleteGroup removes a group. Only the owner may delete it. Events and todos that belong
// to the group are not deleted.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	userID, group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	if group.RoleOf(userID) != models.RoleOwner {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}

	if err := s.store.DeleteGroup(ctx, group.ID); err != nil {
		return nil, toConnectError(s.logger, "DeleteGroup", err)
	}

	s.logger.Info("Group deleted", "group_id", group.ID)
	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

// LeaveGroup removes the caller from a group.
func (s *GroupService) LeaveGroup(ctx context.Context, req *connect.Request[api.LeaveGroupRequest]) (*connect.Response[api.LeaveGroupResponse], error) {
	userID, group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	if err := s.store.LeaveGroup(ctx, group.ID, userID); err != nil {
		return nil, toConnectError(s.logger, "LeaveGroup", err)
	}

	s.logger.Info("User left group", "group_id", group.ID, "user_id", userID)
	return connect.NewResponse(&api.LeaveGroupResponse{}), nil
}

// GetInviteCode returns the current code with its expiration state, issuing one if the
// group has none.
func (s *GroupService) GetInviteCode(ctx context.Context, req *connect.Request[api.InviteCodeRequest]) (*connect.Response[api.InviteCodeResponse], error) {
	if _, _, err := s.memberGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	status, err := s.invites.LoadCurrentCode(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(s.logger, "GetInviteCode", err)
	}
	return connect.NewResponse(toAPIInviteCode(status)), nil
}

// RegenerateInviteCode replaces the group's code. The old code stops working immediately.
func (s *GroupService) RegenerateInviteCode(ctx context.Context, req *connect.Request[api.InviteCodeRequest]) (*connect.Response[api.InviteCodeResponse], error) {
	userID, group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	if _, err := s.invites.GenerateNewCode(ctx, group.ID); err != nil {
		return nil, toConnectError(s.logger, "RegenerateInviteCode", err)
	}
	status, err := s.invites.LoadCurrentCode(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(s.logger, "RegenerateInviteCode", err)
	}

	s.logger.Info("Invite code regenerated", "group_id", group.ID, "user_id", userID)
	return connect.NewResponse(toAPIInviteCode(status)), nil
}

// ShareInviteCode returns the current code for display or copying and fails with
// FailedPrecondition once it has expired.
func (s *GroupService) ShareInviteCode(ctx context.Context, req *connect.Request[api.InviteCodeRequest]) (*connect.Response[api.InviteCodeResponse], error) {
	if _, _, err := s.memberGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	status, err := s.invites.ShareableCode(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(s.logger, "ShareInviteCode", err)
	}
	return connect.NewResponse(toAPIInviteCode(status)), nil
}

// JoinGroup adds the caller to the group owning the invite code.
func (s *GroupService) JoinGroup(ctx context.Context, req *connect.Request[api.JoinGroupRequest]) (*connect.Response[api.JoinGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.joiner.Join(ctx, req.Msg.InviteCode, userID)
	if err != nil {
		return nil, toConnectError(s.logger, "JoinGroup", err)
	}

	return connect.NewResponse(&api.JoinGroupResponse{
		GroupID:       result.GroupID,
		GroupName:     result.GroupName,
		AlreadyMember: result.AlreadyMember,
	}), nil
}

// memberGroup loads groupID and checks that the caller belongs to it. Non-members get
// NotFound so group IDs cannot be probed.
func (s *GroupService) memberGroup(ctx context.Context, groupID string) (string, *models.Group, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", nil, err
	}
	if groupID == "" {
		return "", nil, connect.NewError(connect.CodeInvalidArgument, errGroupIDRequired)
	}

	group, err := s.store.GetGroupByID(ctx, groupID)
	if err != nil {
		return "", nil, toConnectError(s.logger, "load group", err)
	}
	if group == nil || !group.IsMember(userID) {
		return "", nil, connect.NewError(connect.CodeNotFound, errGroupNotFound)
	}
	return userID, group, nil
}

func (s *GroupService) toAPIGroup(ctx context.Context, group *models.Group, viewerID string) (api.Group, error) {
	names, err := s.displayNames(ctx, group)
	if err != nil {
		return api.Group{}, toConnectError(s.logger, "load members", err)
	}
	return buildAPIGroup(group, viewerID, names), nil
}

// displayNames loads the display names of every member of groups in one store call.
func (s *GroupService) displayNames(ctx context.Context, groups ...*models.Group) (map[string]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, g := range groups {
		for _, id := range g.MemberIDs() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(users))
	for id, u := range users {
		names[id] = u.DisplayName
	}
	return names, nil
}

func buildAPIGroup(group *models.Group, viewerID string, names map[string]string) api.Group {
	memberIDs := group.MemberIDs()
	members := make([]api.Member, len(memberIDs))
	for i, id := range memberIDs {
		name := names[id]
		if name == "" {
			name = id
		}
		members[i] = api.Member{UserID: id, DisplayName: name, Role: group.RoleOf(id)}
	}

	return api.Group{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		CreatedBy:   group.CreatedBy,
		Members:     members,
		CreatedAt:   group.CreatedAt,
		Role:        group.RoleOf(viewerID),
	}
}

func toAPIInviteCode(status invite.CodeStatus) *api.InviteCodeResponse {
	return &api.InviteCodeResponse{
		Code:          status.Code,
		IsExpired:     status.IsExpired,
		DaysRemaining: status.DaysRemaining,
		CreatedAt:     status.CreatedAt,
	}
}
