package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Migration struct {
	Version    int
	Name       string
	Statements []string
}

type schemaMigration struct {
	Version   int `gorm:"primaryKey;autoIncrement:false"`
	Name      string
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// migrations must only ever be appended to. Version is the 1-based position.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "users and groups",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at DATETIME,
				updated_at DATETIME,
				deleted_at DATETIME,
				username TEXT NOT NULL UNIQUE,
				last_import_at DATETIME,
				is_admin NUMERIC NOT NULL DEFAULT 0,
				is_moderator NUMERIC NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_users_deleted_at ON users(deleted_at)`,
			`CREATE TABLE IF NOT EXISTS groups (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				uid TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				created_by INTEGER NOT NULL REFERENCES users(id),
				created_at DATETIME
			)`,
			`CREATE TABLE IF NOT EXISTS group_members (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				role TEXT NOT NULL DEFAULT 'member',
				joined_at DATETIME,
				UNIQUE(group_id, user_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_group_members_user ON group_members(user_id)`,
		},
	},
	{
		Version: 2,
		Name:    "faction taxonomy",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS factions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				key TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				motto TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS campaigns (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				faction_id INTEGER NOT NULL REFERENCES factions(id),
				key TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT,
				sort_order INTEGER NOT NULL DEFAULT 0,
				UNIQUE(faction_id, key)
			)`,
			`CREATE TABLE IF NOT EXISTS emblems (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				campaign_id INTEGER NOT NULL REFERENCES campaigns(id),
				key TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				image TEXT,
				max_grade INTEGER NOT NULL DEFAULT 5,
				sort_order INTEGER NOT NULL DEFAULT 0,
				UNIQUE(campaign_id, key)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_campaigns_faction ON campaigns(faction_id)`,
			`CREATE INDEX IF NOT EXISTS idx_emblems_campaign ON emblems(campaign_id)`,
		},
	},
	{
		Version: 3,
		Name:    "user progress and grade thresholds",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS user_emblems (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				emblem_id INTEGER NOT NULL REFERENCES emblems(id) ON DELETE CASCADE,
				value INTEGER NOT NULL DEFAULT 0,
				threshold INTEGER NOT NULL DEFAULT 0,
				grade INTEGER NOT NULL DEFAULT 0,
				completed NUMERIC NOT NULL DEFAULT 0,
				UNIQUE(user_id, emblem_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_user_emblems_user ON user_emblems(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_user_emblems_emblem ON user_emblems(emblem_id)`,
			`CREATE TABLE IF NOT EXISTS emblem_grade_thresholds (
				emblem_id INTEGER NOT NULL REFERENCES emblems(id) ON DELETE CASCADE,
				grade INTEGER NOT NULL,
				threshold INTEGER NOT NULL,
				PRIMARY KEY (emblem_id, grade)
			)`,
		},
	},
	{
		Version: 4,
		Name:    "emblem translations",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS emblem_translations (
				emblem_id INTEGER NOT NULL REFERENCES emblems(id) ON DELETE CASCADE,
				locale TEXT NOT NULL,
				name TEXT,
				description TEXT,
				PRIMARY KEY (emblem_id, locale)
			)`,
		},
	},
	{
		Version: 5,
		Name:    "emblem moderation flag",
		Statements: []string{
			`ALTER TABLE emblems ADD COLUMN validated NUMERIC NOT NULL DEFAULT 0`,
			// Emblems imported before moderation existed were already visible.
			`UPDATE emblems SET validated = 1`,
		},
	},
	{
		Version: 6,
		Name:    "group invitations",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS group_invites (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
				code TEXT NOT NULL UNIQUE,
				created_by INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at DATETIME,
				expires_at DATETIME,
				max_uses INTEGER,
				uses_count INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_group_invites_group ON group_invites(group_id)`,
			`CREATE TABLE IF NOT EXISTS group_pending_invites (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				group_id INTEGER NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
				user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				invited_by INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				created_at DATETIME,
				UNIQUE(group_id, user_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_group_pending_invites_user ON group_pending_invites(user_id)`,
		},
	},
}

// Migrations returns the ordered migration list.
func Migrations() []Migration {
	return migrations
}

// Migrate applies every migration newer than the recorded schema version, each
// inside its own transaction.
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	if err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME NOT NULL
	)`).Error; err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			for _, stmt := range m.Statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return tx.Create(&schemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now().UTC(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		log.Info("applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 for a fresh store.
func SchemaVersion(db *gorm.DB) (int, error) {
	var version int
	err := db.Model(&schemaMigration{}).Select("COALESCE(MAX(version), 0)").Scan(&version).Error
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
