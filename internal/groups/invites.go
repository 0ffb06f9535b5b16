package groups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/gdg-garage/reputation-tracker/internal/staging"
	"gorm.io/gorm"
)

const inviteCodeLength = 10

var (
	ErrInviteNotFound = errors.New("invitation not found")
	ErrInviteExpired  = errors.New("invitation expired or used up")
	ErrAlreadyMember  = errors.New("user is already a member of the group")
	ErrAlreadyInvited = errors.New("user already has a pending invitation to the group")
	ErrNotInvitee     = errors.New("invitation is addressed to another user")
)

// InviteLinkOptions limits a new invite link. Zero values mean no limit.
type InviteLinkOptions struct {
	ExpiresAt *time.Time
	MaxUses   int
}

// CreateInviteLink replaces the group's invite link with a fresh code.
func (r *Repository) CreateInviteLink(ctx context.Context, groupID, createdBy uint, opts InviteLinkOptions) (*models.GroupInvite, error) {
	invite := models.GroupInvite{
		GroupID:   groupID,
		CreatedBy: createdBy,
		CreatedAt: r.now(),
		ExpiresAt: opts.ExpiresAt,
	}
	if opts.MaxUses > 0 {
		maxUses := opts.MaxUses
		invite.MaxUses = &maxUses
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupInvite{}).Error; err != nil {
			return err
		}
		code, err := freeInviteCode(tx)
		if err != nil {
			return err
		}
		invite.Code = code
		return tx.Create(&invite).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create invite link for group %d: %w", groupID, err)
	}
	return &invite, nil
}

func freeInviteCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := staging.NewCode(inviteCodeLength)
		if err != nil {
			return "", err
		}
		var n int64
		if err := tx.Model(&models.GroupInvite{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free invite code after 10 attempts")
}

// InviteLink returns the group's current invite link, or ErrInviteNotFound.
func (r *Repository) InviteLink(ctx context.Context, groupID uint) (*models.GroupInvite, error) {
	var invite models.GroupInvite
	res := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&invite)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInviteNotFound
	}
	return &invite, nil
}

func (r *Repository) DeleteInviteLink(ctx context.Context, groupID uint) error {
	return r.db.WithContext(ctx).Where("group_id = ?", groupID).Delete(&models.GroupInvite{}).Error
}

// InviteInfo is an invite link with the group it leads to.
type InviteInfo struct {
	models.GroupInvite
	GroupName string `json:"groupName"`
	GroupUID  string `json:"groupUid"`
}

// InviteByCode looks up a link. It does not check that the link is usable.
func (r *Repository) InviteByCode(ctx context.Context, code string) (*InviteInfo, error) {
	return inviteByCode(r.db.WithContext(ctx), code)
}

func inviteByCode(db *gorm.DB, code string) (*InviteInfo, error) {
	var info InviteInfo
	res := db.Table("group_invites AS gi").
		Select("gi.*, g.name AS group_name, g.uid AS group_uid").
		Joins("JOIN groups g ON g.id = gi.group_id").
		Where("gi.code = ?", code).
		Limit(1).
		Scan(&info)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInviteNotFound
	}
	return &info, nil
}

// JoinByInvite adds the user to the link's group as a member and counts the use.
func (r *Repository) JoinByInvite(ctx context.Context, code string, userID uint) (*InviteInfo, error) {
	var info *InviteInfo
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		info, err = inviteByCode(tx, code)
		if err != nil {
			return err
		}
		if !info.Usable(r.now()) {
			return ErrInviteExpired
		}
		member, err := isMember(tx, info.GroupID, userID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		// The use is counted only while the link still has uses left.
		res := tx.Model(&models.GroupInvite{}).
			Where("id = ? AND (max_uses IS NULL OR uses_count < max_uses)", info.ID).
			Update("uses_count", gorm.Expr("uses_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInviteExpired
		}
		info.UsesCount++

		return addMember(tx, info.GroupID, userID, models.RoleMember, r.now())
	})
	if err != nil {
		return nil, fmt.Errorf("join with invite %s: %w", code, err)
	}
	return info, nil
}

// InviteUser records a pending invitation for the user.
func (r *Repository) InviteUser(ctx context.Context, groupID, userID, invitedBy uint) (*models.GroupPendingInvite, error) {
	invite := models.GroupPendingInvite{
		GroupID:   groupID,
		UserID:    userID,
		InvitedBy: invitedBy,
		CreatedAt: r.now(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := isMember(tx, groupID, userID)
		if err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}
		var n int64
		if err := tx.Model(&models.GroupPendingInvite{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadyInvited
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		return nil, fmt.Errorf("invite user %d to group %d: %w", userID, groupID, err)
	}
	return &invite, nil
}

// PendingInvite is an invitation as shown to the invited user.
type PendingInvite struct {
	ID                uint      `json:"id"`
	GroupID           uint      `json:"groupId"`
	GroupUID          string    `json:"groupUid"`
	GroupName         string    `json:"groupName"`
	UserID            uint      `json:"userId"`
	InvitedBy         uint      `json:"invitedBy"`
	InvitedByUsername string    `json:"invitedByUsername"`
	CreatedAt         time.Time `json:"createdAt"`
}

// GroupPendingInvite is an invitation as shown to the group's moderators.
type GroupPendingInvite struct {
	ID                uint      `json:"id"`
	Username          string    `json:"username"`
	InvitedByUsername string    `json:"invitedByUsername"`
	CreatedAt         time.Time `json:"createdAt"`
}

func pendingInvites(db *gorm.DB) *gorm.DB {
	return db.Table("group_pending_invites AS pi").
		Select("pi.id, pi.group_id, g.uid AS group_uid, g.name AS group_name, pi.user_id, pi.invited_by, u.username AS invited_by_username, pi.created_at").
		Joins("JOIN groups g ON g.id = pi.group_id").
		Joins("JOIN users u ON u.id = pi.invited_by")
}

// PendingInvitesForUser lists the invitations addressed to the user, newest first.
func (r *Repository) PendingInvitesForUser(ctx context.Context, userID uint) ([]PendingInvite, error) {
	out := []PendingInvite{}
	err := pendingInvites(r.db.WithContext(ctx)).
		Where("pi.user_id = ?", userID).
		Order("pi.created_at DESC, pi.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list pending invites of user %d: %w", userID, err)
	}
	return out, nil
}

// PendingInvitesForGroup lists the group's outstanding invitations, newest first.
func (r *Repository) PendingInvitesForGroup(ctx context.Context, groupID uint) ([]GroupPendingInvite, error) {
	out := []GroupPendingInvite{}
	err := r.db.WithContext(ctx).
		Table("group_pending_invites AS pi").
		Select("pi.id, invited.username, inviter.username AS invited_by_username, pi.created_at").
		Joins("JOIN users invited ON invited.id = pi.user_id").
		Joins("JOIN users inviter ON inviter.id = pi.invited_by").
		Where("pi.group_id = ?", groupID).
		Order("pi.created_at DESC, pi.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list pending invites of group %d: %w", groupID, err)
	}
	return out, nil
}

func pendingInvite(db *gorm.DB, inviteID uint) (*PendingInvite, error) {
	var invite PendingInvite
	res := pendingInvites(db).Where("pi.id = ?", inviteID).Limit(1).Scan(&invite)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInviteNotFound
	}
	return &invite, nil
}

// AcceptPendingInvite makes the invited user a member and drops the invitation.
func (r *Repository) AcceptPendingInvite(ctx context.Context, inviteID, userID uint) (*PendingInvite, error) {
	var invite *PendingInvite
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invite, err = pendingInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite.UserID != userID {
			return ErrNotInvitee
		}
		member, err := isMember(tx, invite.GroupID, userID)
		if err != nil {
			return err
		}
		if !member {
			if err := addMember(tx, invite.GroupID, userID, models.RoleMember, r.now()); err != nil {
				return err
			}
		}
		return tx.Delete(&models.GroupPendingInvite{}, inviteID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("accept invite %d: %w", inviteID, err)
	}
	return invite, nil
}

// RejectPendingInvite drops an invitation addressed to the user.
func (r *Repository) RejectPendingInvite(ctx context.Context, inviteID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, err := pendingInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite.UserID != userID {
			return ErrNotInvitee
		}
		return tx.Delete(&models.GroupPendingInvite{}, inviteID).Error
	})
}

// CancelPendingInvite drops one of the group's invitations.
func (r *Repository) CancelPendingInvite(ctx context.Context, groupID, inviteID uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND group_id = ?", inviteID, groupID).
		Delete(&models.GroupPendingInvite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteNotFound
	}
	return nil
}
