package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpen_AppliesAllMigrations(t *testing.T) {
	db, err := Open(MemoryPath, zap.NewNop())
	require.NoError(t, err)
	defer Close(db)

	version, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, len(Migrations()), version)

	for _, table := range []string{
		"users", "groups", "group_members", "factions", "campaigns", "emblems",
		"user_emblems", "emblem_grade_thresholds", "emblem_translations",
		"group_invites", "group_pending_invites",
	} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
	assert.True(t, db.Migrator().HasColumn("emblems", "validated"))
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := Open(MemoryPath, zap.NewNop())
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db, nil))
	require.NoError(t, Migrate(db, nil))

	var count int64
	require.NoError(t, db.Table("schema_migrations").Count(&count).Error)
	assert.Equal(t, int64(len(Migrations())), count)
}

func TestMigrationVersionsAreSequential(t *testing.T) {
	for i, m := range Migrations() {
		assert.Equal(t, i+1, m.Version, "migration %q", m.Name)
		assert.NotEmpty(t, m.Statements)
	}
}

func TestOpen_EnforcesForeignKeys(t *testing.T) {
	db, err := Open(MemoryPath, zap.NewNop())
	require.NoError(t, err)
	defer Close(db)

	err = db.Exec(`INSERT INTO campaigns (faction_id, key, name) VALUES (999, 'default', 'x')`).Error
	assert.Error(t, err)
}

func TestOpen_LogsQueryErrorsThroughZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	db, err := Open(MemoryPath, zap.New(core))
	require.NoError(t, err)
	defer Close(db)

	var row struct{ ID uint }
	err = db.Table("users").Where("id = ?", 999).First(&row).Error
	require.Error(t, err)
	assert.Zero(t, logs.FilterMessageSnippet("record not found").Len())

	require.Error(t, db.Exec("SELECT * FROM missing_table").Error)
	assert.NotZero(t, logs.FilterMessageSnippet("missing_table").Len())
}
