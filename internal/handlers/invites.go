package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/auth"
	"github.com/gdg-garage/reputation-tracker/internal/groups"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"go.uber.org/zap"
)

type InviteLinkResponse struct {
	Body struct {
		Invite *models.GroupInvite `json:"invite"`
	}
}

func (h *GroupHandler) HandleGetInviteLink(ctx context.Context, input *GroupRequest) (*InviteLinkResponse, error) {
	group, _, err := h.moderatorGroup(ctx, input)
	if err != nil {
		return nil, err
	}
	resp := &InviteLinkResponse{}
	invite, err := h.groups.InviteLink(ctx, group.ID)
	switch {
	case errors.Is(err, groups.ErrInviteNotFound):
	case err != nil:
		return nil, toHTTPError(h.log, err)
	default:
		resp.Body.Invite = invite
	}
	return resp, nil
}

type InviteLinkLimits struct {
	ExpiresInHours int `json:"expiresInHours,omitempty" minimum:"0" doc:"Hours before the link expires, 0 for never"`
	MaxUses        int `json:"maxUses,omitempty" minimum:"0" doc:"Number of joins allowed, 0 for unlimited"`
}

type CreateInviteLinkRequest struct {
	GroupRequest
	Body *InviteLinkLimits
}

// HandleCreateInviteLink replaces the group's invite link.
func (h *GroupHandler) HandleCreateInviteLink(ctx context.Context, input *CreateInviteLinkRequest) (*InviteLinkResponse, error) {
	group, userID, err := h.moderatorGroup(ctx, &input.GroupRequest)
	if err != nil {
		return nil, err
	}
	var opts groups.InviteLinkOptions
	if limits := input.Body; limits != nil {
		opts.MaxUses = limits.MaxUses
		if limits.ExpiresInHours > 0 {
			expiresAt := time.Now().UTC().Add(time.Duration(limits.ExpiresInHours) * time.Hour)
			opts.ExpiresAt = &expiresAt
		}
	}
	invite, err := h.groups.CreateInviteLink(ctx, group.ID, userID, opts)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	h.log.Info("invite link created", zap.String("group_uid", group.UID), zap.Uint("user_id", userID))
	resp := &InviteLinkResponse{}
	resp.Body.Invite = invite
	return resp, nil
}

func (h *GroupHandler) HandleDeleteInviteLink(ctx context.Context, input *GroupRequest) (*struct{}, error) {
	group, _, err := h.moderatorGroup(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := h.groups.DeleteInviteLink(ctx, group.ID); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return nil, nil
}

type InviteCodeRequest struct {
	auth.AuthInput
	Code string `path:"code" minLength:"1" maxLength:"64"`
}

type InvitePreviewResponse struct {
	Body struct {
		GroupName       string `json:"groupName"`
		GroupUID        string `json:"groupUid"`
		AlreadyMember   bool   `json:"alreadyMember"`
		IsAuthenticated bool   `json:"isAuthenticated"`
	}
}

// HandlePreviewInvite describes the group a link leads to. It works without a
// session; with one it also tells whether the caller already belongs to it.
func (h *GroupHandler) HandlePreviewInvite(ctx context.Context, input *InviteCodeRequest) (*InvitePreviewResponse, error) {
	info, err := h.groups.InviteByCode(ctx, input.Code)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	if !info.Usable(time.Now().UTC()) {
		return nil, toHTTPError(h.log, groups.ErrInviteExpired)
	}

	resp := &InvitePreviewResponse{}
	resp.Body.GroupName = info.GroupName
	resp.Body.GroupUID = info.GroupUID
	if input.Cookie == "" {
		return resp, nil
	}
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return resp, nil
	}
	resp.Body.IsAuthenticated = true
	resp.Body.AlreadyMember, err = h.groups.IsMember(ctx, info.GroupID, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return resp, nil
}

type JoinResponse struct {
	Body struct {
		GroupName string `json:"groupName"`
		GroupUID  string `json:"groupUid"`
	}
}

func (h *GroupHandler) HandleJoin(ctx context.Context, input *InviteCodeRequest) (*JoinResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	info, err := h.groups.JoinByInvite(ctx, input.Code, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	h.log.Info("joined group with invite link", zap.String("group_uid", info.GroupUID), zap.Uint("user_id", userID))
	resp := &JoinResponse{}
	resp.Body.GroupName = info.GroupName
	resp.Body.GroupUID = info.GroupUID
	return resp, nil
}

type GroupPendingInvitesResponse struct {
	Body struct {
		Invites []groups.GroupPendingInvite `json:"invites"`
	}
}

func (h *GroupHandler) HandleGroupPendingInvites(ctx context.Context, input *GroupRequest) (*GroupPendingInvitesResponse, error) {
	group, _, err := h.moderatorGroup(ctx, input)
	if err != nil {
		return nil, err
	}
	invites, err := h.groups.PendingInvitesForGroup(ctx, group.ID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	resp := &GroupPendingInvitesResponse{}
	resp.Body.Invites = invites
	return resp, nil
}

type InviteUserRequest struct {
	GroupRequest
	Body struct {
		Username string `json:"username" minLength:"1"`
	}
}

type PendingInviteResponse struct {
	Body *models.GroupPendingInvite
}

// HandleInviteUser invites a user by username. They join once they accept.
func (h *GroupHandler) HandleInviteUser(ctx context.Context, input *InviteUserRequest) (*PendingInviteResponse, error) {
	group, userID, err := h.moderatorGroup(ctx, &input.GroupRequest)
	if err != nil {
		return nil, err
	}
	user, err := h.userByUsername(ctx, input.Body.Username)
	if err != nil {
		return nil, err
	}
	invite, err := h.groups.InviteUser(ctx, group.ID, user.ID, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &PendingInviteResponse{Body: invite}, nil
}

type GroupPendingInviteRequest struct {
	GroupRequest
	ID uint `path:"id"`
}

func (h *GroupHandler) HandleCancelPendingInvite(ctx context.Context, input *GroupPendingInviteRequest) (*struct{}, error) {
	group, _, err := h.moderatorGroup(ctx, &input.GroupRequest)
	if err != nil {
		return nil, err
	}
	if err := h.groups.CancelPendingInvite(ctx, group.ID, input.ID); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return nil, nil
}

type MyPendingInvitesResponse struct {
	Body []groups.PendingInvite
}

func (h *GroupHandler) HandleMyPendingInvites(ctx context.Context, input *auth.AuthInput) (*MyPendingInvitesResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	invites, err := h.groups.PendingInvitesForUser(ctx, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &MyPendingInvitesResponse{Body: invites}, nil
}

type PendingInviteRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

type AcceptedInviteResponse struct {
	Body *groups.PendingInvite
}

func (h *GroupHandler) HandleAcceptPendingInvite(ctx context.Context, input *PendingInviteRequest) (*AcceptedInviteResponse, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	invite, err := h.groups.AcceptPendingInvite(ctx, input.ID, userID)
	if err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return &AcceptedInviteResponse{Body: invite}, nil
}

func (h *GroupHandler) HandleRejectPendingInvite(ctx context.Context, input *PendingInviteRequest) (*struct{}, error) {
	userID, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	if err := h.groups.RejectPendingInvite(ctx, input.ID, userID); err != nil {
		return nil, toHTTPError(h.log, err)
	}
	return nil, nil
}
