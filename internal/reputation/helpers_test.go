package reputation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/database"
	"github.com/gdg-garage/reputation-tracker/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const frenchMotto = "Les mers nous appartiennent"

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.Open(database.MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(db, zap.NewNop(), opts...), db
}

func createUser(t *testing.T, db *gorm.DB, id uint, username string) models.User {
	t.Helper()
	user := models.User{Username: username}
	user.ID = id
	require.NoError(t, db.Create(&user).Error)
	return user
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

// athena builds an export holding a single flat AthenasFortune faction with
// the given emblem objects.
func athena(emblems ...string) []byte {
	return []byte(fmt.Sprintf(`{"AthenasFortune": {"Motto": %q, "Emblems": {"Emblems": [%s]}}}`,
		frenchMotto, strings.Join(emblems, ",")))
}

func emblemByKey(t *testing.T, db *gorm.DB, key string) models.Emblem {
	t.Helper()
	var emblem models.Emblem
	require.NoError(t, db.Where("key = ?", key).First(&emblem).Error)
	return emblem
}
