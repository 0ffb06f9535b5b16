package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GradeStep is one rung of an emblem's grade ladder.
type GradeStep struct {
	Grade     int   `json:"grade"`
	Threshold int64 `json:"threshold"`
}

// Observation is what one export says about one emblem for one user.
type Observation struct {
	Value     int64
	Threshold int64
	Grade     int64
	MaxGrade  int64
	Completed bool
}

func observationOf(e EmblemPayload) Observation {
	return Observation{
		Value:     e.Value.Or(0),
		Threshold: e.Threshold.Or(0),
		Grade:     e.Grade.Or(0),
		// An emblem without MaxGrade is treated as a binary achievement here,
		// while new rows default to 5 grades.
		MaxGrade:  e.MaxGrade.Or(1),
		Completed: bool(e.Completed),
	}
}

// EffectiveGrade is the reported grade, except that a completed binary
// achievement counts as grade 1: the export never reports a grade for those.
func (o Observation) EffectiveGrade() int64 {
	if o.Completed && o.MaxGrade == 1 && o.Grade == 0 {
		return 1
	}
	return o.Grade
}

// LearnThreshold derives the grade threshold an observation proves, if any.
// ok is false when the observation carries no positive evidence.
func LearnThreshold(o Observation) (step GradeStep, ok bool) {
	grade := o.EffectiveGrade()

	threshold := o.Threshold
	if threshold <= 0 {
		threshold = o.Value
	}
	if threshold == 0 && grade > 0 && o.Completed {
		threshold = 1
	}

	if grade <= 0 || threshold <= 0 {
		return GradeStep{}, false
	}
	return GradeStep{Grade: int(grade), Threshold: threshold}, true
}

// upsertGradeThreshold records step for the emblem, replacing the threshold
// previously known for that exact grade.
func upsertGradeThreshold(tx *gorm.DB, emblemID uint, step GradeStep) error {
	row := models.EmblemGradeThreshold{EmblemID: emblemID, Grade: step.Grade, Threshold: step.Threshold}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "emblem_id"}, {Name: "grade"}},
		DoUpdates: clause.AssignmentColumns([]string{"threshold"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert threshold emblem=%d grade=%d: %w", emblemID, step.Grade, err)
	}
	return nil
}

// GetEmblemGradeThresholds returns the known ladder of an emblem, by grade.
func (s *Service) GetEmblemGradeThresholds(ctx context.Context, emblemID uint) ([]GradeStep, error) {
	steps := []GradeStep{}
	err := s.db.WithContext(ctx).
		Model(&models.EmblemGradeThreshold{}).
		Select("grade, threshold").
		Where("emblem_id = ?", emblemID).
		Order("grade").
		Scan(&steps).Error
	if err != nil {
		return nil, fmt.Errorf("load thresholds of emblem %d: %w", emblemID, err)
	}
	return steps, nil
}

// ReplaceEmblemGradeThresholds overwrites the whole ladder of an emblem with
// the given steps. Steps without a positive grade and threshold are dropped.
func (s *Service) ReplaceEmblemGradeThresholds(ctx context.Context, emblemID uint, steps []GradeStep) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireEmblem(tx, emblemID); err != nil {
			return err
		}
		if err := tx.Where("emblem_id = ?", emblemID).Delete(&models.EmblemGradeThreshold{}).Error; err != nil {
			return err
		}
		for _, step := range steps {
			if step.Grade <= 0 || step.Threshold <= 0 {
				continue
			}
			if err := upsertGradeThreshold(tx, emblemID, step); err != nil {
				return err
			}
		}
		return nil
	})
}

func requireEmblem(tx *gorm.DB, emblemID uint) error {
	var emblem models.Emblem
	err := tx.Select("id").First(&emblem, emblemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("emblem %d: %w", emblemID, ErrEmblemNotFound)
	}
	return err
}
