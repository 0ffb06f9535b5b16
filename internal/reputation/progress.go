package reputation

import (
	"fmt"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertProgress replaces the user's row for the emblem with the values the
// export reported, uninterpreted.
func upsertProgress(tx *gorm.DB, userID, emblemID uint, e EmblemPayload) error {
	row := models.UserEmblem{
		UserID:    userID,
		EmblemID:  emblemID,
		Value:     e.Value.Or(0),
		Threshold: e.Threshold.Or(0),
		Grade:     int(e.Grade.Or(0)),
		Completed: bool(e.Completed),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "emblem_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "threshold", "grade", "completed"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert progress user=%d emblem=%d: %w", userID, emblemID, err)
	}
	return nil
}

func stampLastImport(tx *gorm.DB, userID uint, at time.Time) error {
	res := tx.Model(&models.User{}).Where("id = ?", userID).Update("last_import_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
	}
	return nil
}

// effectiveGrade applies the binary-achievement rule to a stored progress row.
func effectiveGrade(p Progress, maxGrade int) int {
	if p.Completed && maxGrade == 1 && p.Grade == 0 {
		return 1
	}
	return p.Grade
}
