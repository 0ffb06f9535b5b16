package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/gdg-garage/reputation-tracker/internal/groups"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/gdg-garage/reputation-tracker/internal/reputation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GroupHandler struct {
	db          *gorm.DB
	groups      *groups.Repository
	service     *reputation.Service
	authHandler *auth.AuthHandler
	log         *zap.Logger
}

func NewGroupHandler(db *gorm.DB, repo *groups.Repository, service *reputation.Service, authHandler *auth.AuthHandler, log *zap.Logger) *GroupHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GroupHandler{db: db, groups: repo, service: service, authHandler: authHandler, log: log}
}

type CreateGroupRequest struct {
	auth.AuthInput
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"100"`
	}
}

type GroupResponse struct {
	Body *models.Group
}

func (h *GroupHandler) HandleCreate(ctx context.Context, input *CreateGroupRequest) (*GroupResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	group, err := h.groups.Create(ctx, input.Body.Name, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &GroupResponse{Body: group}, nil
}

type GroupRequest struct {
	auth.AuthInput
	UID string `path:"uid"`
}

// memberGroup resolves the group and checks that the caller belongs to it.
func (h *GroupHandler) memberGroup(ctx context.Context, input *GroupRequest) (*models.Group, uint, models.GroupRole, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, 0, "", err
	}
	group, err := h.groups.GetByUID(ctx, input.UID)
	if err != nil {
		return nil, 0, "", toHTTPError(h.log, err)
	}
	role, err := h.groups.Role(ctx, group.ID, userID)
	if errors.Is(err, groups.ErrNotMember) {
		return nil, 0, "", huma.Error403Forbidden("Access denied: not a member of this group")
	}
	if err != nil {
		return nil, 0, "", toHTTPError(h.log, err)
	}
	return group, userID, role, nil
}

// moderatorGroup is memberGroup restricted to chefs and moderators.
func (h *GroupHandler) moderatorGroup(ctx context.Context, input *GroupRequest) (*models.Group, uint, error) {
	group, userID, role, err := h.memberGroup(ctx, input)
	if err != nil {
		return nil, 0, err
	}
	if !role.CanModerate() {
		return nil, 0, huma.Error403Forbidden("Access denied: only chefs and moderators can manage invitations")
	}
	return group, userID, nil
}

func (h *GroupHandler) userByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, toHTTPError(h.log, err)
	}
	return &user, nil
}

type GroupListResponse struct {
	Body struct {
		Groups []groups.UserGroup `json:"groups"`
	}
}

// HandleList returns the caller's groups with their role in each.
func (h *GroupHandler) HandleList(ctx context.Context, input *auth.AuthInput) (*GroupListResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	list, err := h.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	resp := &GroupListResponse{}
	resp.Body.Groups = list
	return resp, nil
}

type MembersResponse struct {
	Body []groups.Member
}

func (h *GroupHandler) HandleMembers(ctx context.Context, input *GroupRequest) (*MembersResponse, error) {
	group, _, _, err := h.memberGroup(ctx, input)
	if err != nil {
		return nil, err
	}
	members, err := h.groups.Members(ctx, group.ID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &MembersResponse{Body: members}, nil
}

type AddMemberRequest struct {
	GroupRequest
	Body struct {
		Username string           `json:"username" minLength:"1"`
		Role     models.GroupRole `json:"role,omitempty" enum:"chef,moderator,member"`
	}
}

// HandleAddMember lets a chef add a user, or change their role.
func (h *GroupHandler) HandleAddMember(ctx context.Context, input *AddMemberRequest) (*MembersResponse, error) {
	group, _, role, err := h.memberGroup(ctx, &input.GroupRequest)
	if err != nil {
		return nil, err
	}
	if role != models.RoleChef {
		return nil, huma.Error403Forbidden("Access denied: only chefs can add members")
	}

	user, err := h.userByUsername(ctx, input.Body.Username)
	if err != nil {
		return nil, err
	}

	newRole := input.Body.Role
	if newRole == "" {
		newRole = models.RoleMember
	}
	if err := h.groups.AddMember(ctx, group.ID, user.ID, newRole); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return h.HandleMembers(ctx, &input.GroupRequest)
}

type RemoveMemberRequest struct {
	GroupRequest
	UserID uint `path:"userId"`
}

// HandleRemoveMember lets a chef remove anyone, and anyone leave.
func (h *GroupHandler) HandleRemoveMember(ctx context.Context, input *RemoveMemberRequest) (*struct{}, error) {
	group, callerID, role, err := h.memberGroup(ctx, &input.GroupRequest)
	if err != nil {
		return nil, err
	}
	if role != models.RoleChef && callerID != input.UserID {
		return nil, huma.Error403Forbidden("Access denied: only chefs can remove other members")
	}
	if err := h.groups.RemoveMember(ctx, group.ID, input.UserID); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return nil, nil
}

type GroupReputationsRequest struct {
	GroupRequest
	Locale string `query:"locale" doc:"Overlay emblem translations (en, es)"`
}

type GroupReputationsResponse struct {
	Body *reputation.GroupReputations
}

// HandleReputations returns the progress of the group's members only.
func (h *GroupHandler) HandleReputations(ctx context.Context, input *GroupReputationsRequest) (*GroupReputationsResponse, error) {
	group, _, _, err := h.memberGroup(ctx, &input.GroupRequest)
	if err != nil {
		return nil, err
	}
	memberIDs, err := h.groups.MemberIDs(ctx, group.ID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	reps, err := h.service.GetGroupReputations(ctx, memberIDs, readOptions(input.Locale)...)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &GroupReputationsResponse{Body: reps}, nil
}
