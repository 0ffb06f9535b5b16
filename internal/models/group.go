package models

import (
	"time"
)

type GroupRole string

const (
	RoleChef      GroupRole = "chef"
	RoleModerator GroupRole = "moderator"
	RoleMember    GroupRole = "member"
)

type Group struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UID       string    `gorm:"uniqueIndex" json:"uid"`
	Name      string    `json:"name"`
	CreatedBy uint      `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"uniqueIndex:idx_group_member" json:"group_id"`
	UserID   uint      `gorm:"uniqueIndex:idx_group_member" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	Role     GroupRole `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// CanModerate reports whether the role may manage invitations.
func (r GroupRole) CanModerate() bool {
	return r == RoleChef || r == RoleModerator
}

// GroupInvite is a shareable join link. A nil ExpiresAt or MaxUses means no limit.
type GroupInvite struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	GroupID   uint       `gorm:"index" json:"groupId"`
	Code      string     `gorm:"uniqueIndex" json:"code"`
	CreatedBy uint       `json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
	MaxUses   *int       `json:"maxUses"`
	UsesCount int        `json:"usesCount"`
}

// Usable reports whether the link can still be used at now.
func (i GroupInvite) Usable(now time.Time) bool {
	if i.ExpiresAt != nil && i.ExpiresAt.Before(now) {
		return false
	}
	if i.MaxUses != nil && i.UsesCount >= *i.MaxUses {
		return false
	}
	return true
}

// GroupPendingInvite is an invitation addressed to one user, waiting for
// them to accept or reject it.
type GroupPendingInvite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"uniqueIndex:idx_pending_invite" json:"groupId"`
	UserID    uint      `gorm:"uniqueIndex:idx_pending_invite" json:"userId"`
	InvitedBy uint      `json:"invitedBy"`
	CreatedAt time.Time `json:"createdAt"`
}
