package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/gdg-garage/reputation-tracker/internal/database"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createUsers(t *testing.T, db *gorm.DB, names ...string) []models.User {
	t.Helper()
	users := make([]models.User, len(names))
	for i, name := range names {
		users[i] = models.User{Username: name}
		require.NoError(t, db.Create(&users[i]).Error)
	}
	return users
}

func TestCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	users := createUsers(t, db, "anne")

	group, err := repo.Create(ctx, "Crew", users[0].ID)
	require.NoError(t, err)
	_, err = uuid.Parse(group.UID)
	assert.NoError(t, err, "uid must be a uuid")

	members, err := repo.Members(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, models.RoleChef, members[0].Role)
	assert.Equal(t, "anne", members[0].Username)

	found, err := repo.GetByUID(ctx, group.UID)
	require.NoError(t, err)
	assert.Equal(t, group.ID, found.ID)

	_, err = repo.GetByUID(ctx, "missing")
	assert.True(t, errors.Is(err, ErrGroupNotFound))
}

func TestMembership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	users := createUsers(t, db, "zed", "bonny", "anne", "mary")

	group, err := repo.Create(ctx, "Crew", users[0].ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddMember(ctx, group.ID, users[1].ID, models.RoleMember))
	require.NoError(t, repo.AddMember(ctx, group.ID, users[2].ID, models.RoleMember))
	require.NoError(t, repo.AddMember(ctx, group.ID, users[3].ID, models.RoleMember))
	require.NoError(t, repo.AddMember(ctx, group.ID, users[3].ID, models.RoleModerator))

	members, err := repo.Members(ctx, group.ID)
	require.NoError(t, err)
	var names []string
	for _, m := range members {
		names = append(names, m.Username)
	}
	assert.Equal(t, []string{"zed", "mary", "anne", "bonny"}, names)

	ok, err := repo.IsMember(ctx, group.ID, users[1].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.RemoveMember(ctx, group.ID, users[1].ID))
	ok, err = repo.IsMember(ctx, group.ID, users[1].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ids, err := repo.MemberIDs(ctx, group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{users[0].ID, users[2].ID, users[3].ID}, ids)

	role, err := repo.Role(ctx, group.ID, users[3].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, role)
	_, err = repo.Role(ctx, group.ID, users[1].ID)
	assert.True(t, errors.Is(err, ErrNotMember))

	assert.True(t, errors.Is(repo.RemoveMember(ctx, group.ID, users[1].ID), ErrNotMember))
	assert.True(t, errors.Is(repo.RemoveMember(ctx, group.ID, users[0].ID), ErrLastChef))
}

func TestAddMember_CannotDemoteLastChef(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	users := createUsers(t, db, "anne", "bonny")

	group, err := repo.Create(ctx, "Crew", users[0].ID)
	require.NoError(t, err)

	err = repo.AddMember(ctx, group.ID, users[0].ID, models.RoleMember)
	assert.True(t, errors.Is(err, ErrLastChef), "got %v", err)
	role, err := repo.Role(ctx, group.ID, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleChef, role)

	require.NoError(t, repo.AddMember(ctx, group.ID, users[1].ID, models.RoleChef))
	require.NoError(t, repo.AddMember(ctx, group.ID, users[0].ID, models.RoleModerator))
	role, err = repo.Role(ctx, group.ID, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, role)
}

func TestListForUser(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	users := createUsers(t, db, "anne", "bonny")

	zulu, err := repo.Create(ctx, "Zulu", users[0].ID)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Alpha", users[1].ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddMember(ctx, zulu.ID, users[1].ID, models.RoleMember))

	list, err := repo.ListForUser(ctx, users[1].ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Alpha", list[0].Name)
	assert.Equal(t, models.RoleChef, list[0].Role)
	assert.Equal(t, "Zulu", list[1].Name)
	assert.Equal(t, models.RoleMember, list[1].Role)
	assert.Equal(t, zulu.UID, list[1].UID)

	list, err = repo.ListForUser(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, list)
}
