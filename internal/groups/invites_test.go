package groups

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteLink(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	users := createUsers(t, db, "anne", "bonny", "calico", "davy")

	group, err := repo.Create(ctx, "Crew", users[0].ID)
	require.NoError(t, err)

	_, err = repo.InviteLink(ctx, group.ID)
	assert.True(t, errors.Is(err, ErrInviteNotFound))

	first, err := repo.CreateInviteLink(ctx, group.ID, users[0].ID, InviteLinkOptions{})
	require.NoError(t, err)
	assert.Len(t, first.Code, inviteCodeLength)

	link, err := repo.CreateInviteLink(ctx, group.ID, users[0].ID, InviteLinkOptions{MaxUses: 2})
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, link.Code)

	_, err = repo.InviteByCode(ctx, first.Code)
	assert.True(t, errors.Is(err, ErrInviteNotFound), "a new link replaces the old one")

	current, err := repo.InviteLink(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, link.Code, current.Code)

	info, err := repo.InviteByCode(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, "Crew", info.GroupName)
	assert.Equal(t, group.UID, info.GroupUID)
	require.NotNil(t, info.MaxUses)
	assert.Equal(t, 2, *info.MaxUses)

	joined, err := repo.JoinByInvite(ctx, link.Code, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, joined.GroupID)
	assert.Equal(t, 1, joined.UsesCount)
	role, err := repo.Role(ctx, group.ID, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)

	_, err = repo.JoinByInvite(ctx, link.Code, users[1].ID)
	assert.True(t, errors.Is(err, ErrAlreadyMember))

	_, err = repo.JoinByInvite(ctx, link.Code, users[2].ID)
	require.NoError(t, err)
	_, err = repo.JoinByInvite(ctx, link.Code, users[3].ID)
	assert.True(t, errors.Is(err, ErrInviteExpired), "link is used up")

	_, err = repo.JoinByInvite(ctx, "nope", users[3].ID)
	assert.True(t, errors.Is(err, ErrInviteNotFound))

	require.NoError(t, repo.DeleteInviteLink(ctx, group.ID))
	_, err = repo.InviteLink(ctx, group.ID)
	assert.True(t, errors.Is(err, ErrInviteNotFound))
}

func TestInviteLink_Expiry(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }
	ctx := context.Background()
	users := createUsers(t, db, "anne", "bonny")

	group, err := repo.Create(ctx, "Crew", users[0].ID)
	require.NoError(t, err)
	expiresAt := now.Add(time.Hour)
	link, err := repo.CreateInviteLink(ctx, group.ID, users[0].ID, InviteLinkOptions{ExpiresAt: &expiresAt})
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = repo.JoinByInvite(ctx, link.Code, users[1].ID)
	assert.True(t, errors.Is(err, ErrInviteExpired))
	ok, err := repo.IsMember(ctx, group.ID, users[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroupInvite_Usable(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-time.Minute), now.Add(time.Minute)
	one := 1

	assert.True(t, models.GroupInvite{}.Usable(now))
	assert.True(t, models.GroupInvite{ExpiresAt: &future}.Usable(now))
	assert.False(t, models.GroupInvite{ExpiresAt: &past}.Usable(now))
	assert.True(t, models.GroupInvite{MaxUses: &one}.Usable(now))
	assert.False(t, models.GroupInvite{MaxUses: &one, UsesCount: 1}.Usable(now))
}

func TestPendingInvites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	users := createUsers(t, db, "anne", "bonny", "calico")
	anne, bonny, calico := users[0], users[1], users[2]

	crew, err := repo.Create(ctx, "Crew", anne.ID)
	require.NoError(t, err)
	fleet, err := repo.Create(ctx, "Fleet", anne.ID)
	require.NoError(t, err)

	_, err = repo.InviteUser(ctx, crew.ID, anne.ID, anne.ID)
	assert.True(t, errors.Is(err, ErrAlreadyMember))

	crewInvite, err := repo.InviteUser(ctx, crew.ID, bonny.ID, anne.ID)
	require.NoError(t, err)
	_, err = repo.InviteUser(ctx, crew.ID, bonny.ID, anne.ID)
	assert.True(t, errors.Is(err, ErrAlreadyInvited))
	fleetInvite, err := repo.InviteUser(ctx, fleet.ID, bonny.ID, anne.ID)
	require.NoError(t, err)
	calicoInvite, err := repo.InviteUser(ctx, crew.ID, calico.ID, anne.ID)
	require.NoError(t, err)

	mine, err := repo.PendingInvitesForUser(ctx, bonny.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, fleetInvite.ID, mine[0].ID, "newest first")
	assert.Equal(t, "Fleet", mine[0].GroupName)
	assert.Equal(t, fleet.UID, mine[0].GroupUID)
	assert.Equal(t, "anne", mine[0].InvitedByUsername)

	outstanding, err := repo.PendingInvitesForGroup(ctx, crew.ID)
	require.NoError(t, err)
	require.Len(t, outstanding, 2)
	assert.Equal(t, "calico", outstanding[0].Username)
	assert.Equal(t, "bonny", outstanding[1].Username)
	assert.Equal(t, "anne", outstanding[1].InvitedByUsername)

	_, err = repo.AcceptPendingInvite(ctx, crewInvite.ID, calico.ID)
	assert.True(t, errors.Is(err, ErrNotInvitee))
	accepted, err := repo.AcceptPendingInvite(ctx, crewInvite.ID, bonny.ID)
	require.NoError(t, err)
	assert.Equal(t, crew.UID, accepted.GroupUID)
	role, err := repo.Role(ctx, crew.ID, bonny.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, role)
	_, err = repo.AcceptPendingInvite(ctx, crewInvite.ID, bonny.ID)
	assert.True(t, errors.Is(err, ErrInviteNotFound), "accepting consumes the invitation")

	assert.True(t, errors.Is(repo.RejectPendingInvite(ctx, fleetInvite.ID, calico.ID), ErrNotInvitee))
	require.NoError(t, repo.RejectPendingInvite(ctx, fleetInvite.ID, bonny.ID))
	ok, err := repo.IsMember(ctx, fleet.ID, bonny.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.Is(repo.CancelPendingInvite(ctx, fleet.ID, calicoInvite.ID), ErrInviteNotFound),
		"invitation belongs to another group")
	require.NoError(t, repo.CancelPendingInvite(ctx, crew.ID, calicoInvite.ID))

	mine, err = repo.PendingInvitesForUser(ctx, bonny.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
