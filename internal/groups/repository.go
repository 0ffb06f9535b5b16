// Package groups stores groups of users, their membership and the two ways of
// joining one: a shareable invite link and a pending invitation by username.
package groups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrNotMember     = errors.New("user is not a member of the group")
	ErrLastChef      = errors.New("a group must keep at least one chef")
)

type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Member is a group member joined with their username.
type Member struct {
	UserID   uint             `json:"userId"`
	Username string           `json:"username"`
	Role     models.GroupRole `json:"role"`
	JoinedAt time.Time        `json:"joinedAt"`
}

// Create makes a new group with a random uid. The creator joins it as chef.
func (r *Repository) Create(ctx context.Context, name string, createdBy uint) (*models.Group, error) {
	group := models.Group{
		UID:       uuid.NewString(),
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: r.now(),
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			GroupID:  group.ID,
			UserID:   createdBy,
			Role:     models.RoleChef,
			JoinedAt: group.CreatedAt,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create group %q: %w", name, err)
	}
	return &group, nil
}

func (r *Repository) GetByUID(ctx context.Context, uid string) (*models.Group, error) {
	var group models.Group
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("group %s: %w", uid, ErrGroupNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// AddMember adds the user to the group, or changes their role if they
// already belong to it. The group's last chef cannot be demoted.
func (r *Repository) AddMember(ctx context.Context, groupID, userID uint, role models.GroupRole) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return addMember(tx, groupID, userID, role, r.now())
	})
	if err != nil {
		return fmt.Errorf("add user %d to group %d: %w", userID, groupID, err)
	}
	return nil
}

func addMember(tx *gorm.DB, groupID, userID uint, role models.GroupRole, joinedAt time.Time) error {
	if role != models.RoleChef {
		var current models.GroupMember
		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Limit(1).Find(&current)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 && current.Role == models.RoleChef {
			if err := ensureOtherChef(tx, groupID); err != nil {
				return err
			}
		}
	}

	member := models.GroupMember{GroupID: groupID, UserID: userID, Role: role, JoinedAt: joinedAt}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role"}),
	}).Create(&member).Error
}

// ensureOtherChef fails with ErrLastChef unless the group has more than one chef.
func ensureOtherChef(tx *gorm.DB, groupID uint) error {
	var chefs int64
	err := tx.Model(&models.GroupMember{}).
		Where("group_id = ? AND role = ?", groupID, models.RoleChef).
		Count(&chefs).Error
	if err != nil {
		return err
	}
	if chefs <= 1 {
		return ErrLastChef
	}
	return nil
}

func (r *Repository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.GroupMember
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotMember
		}
		if err != nil {
			return err
		}

		if member.Role == models.RoleChef {
			if err := ensureOtherChef(tx, groupID); err != nil {
				return err
			}
		}
		return tx.Delete(&member).Error
	})
}

func (r *Repository) IsMember(ctx context.Context, groupID, userID uint) (bool, error) {
	return isMember(r.db.WithContext(ctx), groupID, userID)
}

func isMember(db *gorm.DB, groupID, userID uint) (bool, error) {
	var n int64
	err := db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var memberOrder = fmt.Sprintf("CASE gm.role WHEN '%s' THEN 0 WHEN '%s' THEN 1 ELSE 2 END, u.username",
	models.RoleChef, models.RoleModerator)

// Members lists chefs first, then moderators, then members, each by username.
func (r *Repository) Members(ctx context.Context, groupID uint) ([]Member, error) {
	members := []Member{}
	err := r.db.WithContext(ctx).
		Table("group_members AS gm").
		Select("gm.user_id, u.username, gm.role, gm.joined_at").
		Joins("JOIN users u ON u.id = gm.user_id AND u.deleted_at IS NULL").
		Where("gm.group_id = ?", groupID).
		Order(memberOrder).
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("list members of group %d: %w", groupID, err)
	}
	return members, nil
}

// MemberIDs returns the user ids of every member of the group.
func (r *Repository) MemberIDs(ctx context.Context, groupID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Role returns the user's role in the group, or ErrNotMember.
func (r *Repository) Role(ctx context.Context, groupID, userID uint) (models.GroupRole, error) {
	var member models.GroupMember
	err := r.db.WithContext(ctx).
		Select("role").
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

// UserGroup is a group seen from one of its members.
type UserGroup struct {
	ID        uint             `json:"id"`
	UID       string           `json:"uid"`
	Name      string           `json:"name"`
	CreatedBy uint             `json:"createdBy"`
	CreatedAt time.Time        `json:"createdAt"`
	Role      models.GroupRole `json:"role"`
}

// ListForUser returns the groups the user belongs to, by name.
func (r *Repository) ListForUser(ctx context.Context, userID uint) ([]UserGroup, error) {
	out := []UserGroup{}
	err := r.db.WithContext(ctx).
		Table("groups AS g").
		Select("g.id, g.uid, g.name, g.created_by, g.created_at, gm.role").
		Joins("JOIN group_members gm ON gm.group_id = g.id").
		Where("gm.user_id = ?", userID).
		Order("g.name, g.id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list groups of user %d: %w", userID, err)
	}
	return out, nil
}
