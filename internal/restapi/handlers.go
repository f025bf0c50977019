// Package restapi exposes a storage.Store over HTTP with gin, so that other groupcal
// instances can use it through the rest storage backend.
package restapi

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/groupcal/internal/storage"
)

// Handler serves the store API.
type Handler struct {
	store storage.Store
}

// NewHandler creates a new store API handler
func NewHandler(store storage.Store) *Handler {
	return &Handler{store: store}
}

// NewRouter builds a gin engine serving the store API under basePath, guarded by token.
func NewRouter(store storage.Store, basePath, token string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group(basePath)
	api.Use(TokenMiddleware(token))
	NewHandler(store).RegisterRoutes(api)
	return r
}

// RegisterRoutes mounts the handlers on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/groups", h.CreateGroup)
	rg.GET("/groups", h.ListGroups)
	rg.GET("/groups/:id", h.GetGroup)
	rg.PATCH("/groups/:id", h.UpdateGroup)
	rg.DELETE("/groups/:id", h.DeleteGroup)
	rg.PUT("/groups/:id/members/:userId", h.JoinGroup)
	rg.DELETE("/groups/:id/members/:userId", h.LeaveGroup)
	rg.GET("/invite-codes/:code", h.FindGroupByInviteCode)

	rg.POST("/users", h.CreateUser)
	rg.GET("/users", h.GetUserByEmail)
	rg.GET("/users/:id", h.GetUser)
	rg.POST("/users/batch", h.GetUsers)
}

// TokenMiddleware rejects requests that do not carry "Bearer <token>".
func TokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid authorization header format"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid token"})
			return
		}

		c.Next()
	}
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req Group
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	group := req.ToModel()
	if err := h.store.CreateGroup(c.Request.Context(), group); err != nil {
		h.storeError(c, "create group", err)
		return
	}
	c.JSON(http.StatusCreated, FromGroup(group))
}

// ListGroups requires ?member=<userID>.
func (h *Handler) ListGroups(c *gin.Context) {
	userID := c.Query("member")
	if userID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "member query parameter required"})
		return
	}

	groups, err := h.store.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		h.storeError(c, "list groups", err)
		return
	}

	resp := make([]Group, len(groups))
	for i, g := range groups {
		resp[i] = FromGroup(g)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetGroup(c *gin.Context) {
	group, err := h.store.GetGroupByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "get group", err)
		return
	}
	if group == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found", Code: CodeNotFound})
		return
	}
	c.JSON(http.StatusOK, FromGroup(group))
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	var req GroupUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.UpdateGroup(c.Request.Context(), c.Param("id"), req.ToModel()); err != nil {
		h.storeError(c, "update group", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.store.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		h.storeError(c, "delete group", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) JoinGroup(c *gin.Context) {
	var req JoinRequest
	// The body is optional; an empty body joins without recording a code.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
	}

	err := h.store.JoinGroup(c.Request.Context(), c.Param("id"), c.Param("userId"), req.InviteCode)
	if err != nil {
		h.storeError(c, "join group", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) LeaveGroup(c *gin.Context) {
	if err := h.store.LeaveGroup(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		h.storeError(c, "leave group", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) FindGroupByInviteCode(c *gin.Context) {
	group, err := h.store.FindGroupByInviteCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.storeError(c, "find group by invite code", err)
		return
	}
	if group == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found", Code: CodeNotFound})
		return
	}
	c.JSON(http.StatusOK, FromGroup(group))
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req User
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.CreateUser(c.Request.Context(), req.ToModel()); err != nil {
		h.storeError(c, "create user", err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// GetUserByEmail requires ?email=<address>.
func (h *Handler) GetUserByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email query parameter required"})
		return
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		h.storeError(c, "get user by email", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found", Code: CodeNotFound})
		return
	}
	c.JSON(http.StatusOK, FromUser(user))
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.storeError(c, "get user", err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found", Code: CodeNotFound})
		return
	}
	c.JSON(http.StatusOK, FromUser(user))
}

func (h *Handler) GetUsers(c *gin.Context) {
	var req UsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	users, err := h.store.GetUsersByIDs(c.Request.Context(), req.IDs)
	if err != nil {
		h.storeError(c, "get users", err)
		return
	}

	resp := UsersResponse{Users: make(map[string]User, len(users))}
	for id, u := range users {
		resp.Users[id] = FromUser(u)
	}
	c.JSON(http.StatusOK, resp)
}

// storeError maps storage sentinels to statuses; anything else is logged and hidden.
func (h *Handler) storeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: CodeNotFound})
	case errors.Is(err, storage.ErrEmailExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodeEmailExists})
	default:
		slog.Error("store API operation failed", "op", op, "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to " + op})
	}
}
