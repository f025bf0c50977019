package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

const GroupServiceName = "groupcal.v1.GroupService"

const (
	GroupServiceCreateGroupProcedure          = "/groupcal.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure             = "/groupcal.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure           = "/groupcal.v1.GroupService/ListGroups"
	GroupServiceUpdateGroupProcedure          = "/groupcal.v1.GroupService/UpdateGroup"
	GroupServiceDeleteGroupProcedure          = "/groupcal.v1.GroupService/DeleteGroup"
	GroupServiceLeaveGroupProcedure           = "/groupcal.v1.GroupService/LeaveGroup"
	GroupServiceGetInviteCodeProcedure        = "/groupcal.v1.GroupService/GetInviteCode"
	GroupServiceRegenerateInviteCodeProcedure = "/groupcal.v1.GroupService/RegenerateInviteCode"
	GroupServiceShareInviteCodeProcedure      = "/groupcal.v1.GroupService/ShareInviteCode"
	GroupServiceJoinGroupProcedure            = "/groupcal.v1.GroupService/JoinGroup"
)

// GroupServiceHandler is implemented by the server.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	UpdateGroup(context.Context, *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error)
	DeleteGroup(context.Context, *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error)
	LeaveGroup(context.Context, *connect.Request[LeaveGroupRequest]) (*connect.Response[LeaveGroupResponse], error)
	GetInviteCode(context.Context, *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error)
	RegenerateInviteCode(context.Context, *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error)
	ShareInviteCode(context.Context, *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error)
	JoinGroup(context.Context, *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error)
}

// NewGroupServiceHandler returns the path to mount the service on and its handler.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceUpdateGroupProcedure, connect.NewUnaryHandler(GroupServiceUpdateGroupProcedure, svc.UpdateGroup, opts...))
	mux.Handle(GroupServiceDeleteGroupProcedure, connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...))
	mux.Handle(GroupServiceLeaveGroupProcedure, connect.NewUnaryHandler(GroupServiceLeaveGroupProcedure, svc.LeaveGroup, opts...))
	mux.Handle(GroupServiceGetInviteCodeProcedure, connect.NewUnaryHandler(GroupServiceGetInviteCodeProcedure, svc.GetInviteCode, opts...))
	mux.Handle(GroupServiceRegenerateInviteCodeProcedure, connect.NewUnaryHandler(GroupServiceRegenerateInviteCodeProcedure, svc.RegenerateInviteCode, opts...))
	mux.Handle(GroupServiceShareInviteCodeProcedure, connect.NewUnaryHandler(GroupServiceShareInviteCodeProcedure, svc.ShareInviteCode, opts...))
	mux.Handle(GroupServiceJoinGroupProcedure, connect.NewUnaryHandler(GroupServiceJoinGroupProcedure, svc.JoinGroup, opts...))
	return "/" + GroupServiceName + "/", mux
}

// GroupServiceClient calls GroupService.
type GroupServiceClient struct {
	createGroup          *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup             *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups           *connect.Client[ListGroupsRequest, ListGroupsResponse]
	updateGroup          *connect.Client[UpdateGroupRequest, UpdateGroupResponse]
	deleteGroup          *connect.Client[DeleteGroupRequest, DeleteGroupResponse]
	leaveGroup           *connect.Client[LeaveGroupRequest, LeaveGroupResponse]
	getInviteCode        *connect.Client[InviteCodeRequest, InviteCodeResponse]
	regenerateInviteCode *connect.Client[InviteCodeRequest, InviteCodeResponse]
	shareInviteCode      *connect.Client[InviteCodeRequest, InviteCodeResponse]
	joinGroup            *connect.Client[JoinGroupRequest, JoinGroupResponse]
}

// NewGroupServiceClient creates a client for the server at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	opts = withClientCodec(opts)
	return &GroupServiceClient{
		createGroup:          connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:             connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:           connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		updateGroup:          connect.NewClient[UpdateGroupRequest, UpdateGroupResponse](httpClient, baseURL+GroupServiceUpdateGroupProcedure, opts...),
		deleteGroup:          connect.NewClient[DeleteGroupRequest, DeleteGroupResponse](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
		leaveGroup:           connect.NewClient[LeaveGroupRequest, LeaveGroupResponse](httpClient, baseURL+GroupServiceLeaveGroupProcedure, opts...),
		getInviteCode:        connect.NewClient[InviteCodeRequest, InviteCodeResponse](httpClient, baseURL+GroupServiceGetInviteCodeProcedure, opts...),
		regenerateInviteCode: connect.NewClient[InviteCodeRequest, InviteCodeResponse](httpClient, baseURL+GroupServiceRegenerateInviteCodeProcedure, opts...),
		shareInviteCode:      connect.NewClient[InviteCodeRequest, InviteCodeResponse](httpClient, baseURL+GroupServiceShareInviteCodeProcedure, opts...),
		joinGroup:            connect.NewClient[JoinGroupRequest, JoinGroupResponse](httpClient, baseURL+GroupServiceJoinGroupProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	return c.updateGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[DeleteGroupRequest]) (*connect.Response[DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) LeaveGroup(ctx context.Context, req *connect.Request[LeaveGroupRequest]) (*connect.Response[LeaveGroupResponse], error) {
	return c.leaveGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetInviteCode(ctx context.Context, req *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error) {
	return c.getInviteCode.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RegenerateInviteCode(ctx context.Context, req *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error) {
	return c.regenerateInviteCode.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ShareInviteCode(ctx context.Context, req *connect.Request[InviteCodeRequest]) (*connect.Response[InviteCodeResponse], error) {
	return c.shareInviteCode.CallUnary(ctx, req)
}

func (c *GroupServiceClient) JoinGroup(ctx context.Context, req *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}
