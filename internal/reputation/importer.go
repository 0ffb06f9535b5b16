package reputation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NewEmblem struct {
	ID         uint   `json:"id"`
	FactionKey string `json:"factionKey"`
	Key        string `json:"key"`
	Name       string `json:"name"`
}

// ImportResult summarizes one committed import.
type ImportResult struct {
	Factions           int         `json:"factions"`
	Emblems            int         `json:"emblems"`
	ThresholdsRecorded int         `json:"thresholdsRecorded"`
	NewEmblems         []NewEmblem `json:"newEmblems"`
	SkippedFactions    []string    `json:"skippedFactions"`
}

// ImportJSON parses raw and imports it for the user.
func (s *Service) ImportJSON(ctx context.Context, userID uint, raw []byte) (*ImportResult, error) {
	payload, err := ParsePayload(raw)
	if err != nil {
		return nil, &ImportError{Stage: "parse", UserID: userID, Err: err}
	}
	return s.Import(ctx, userID, payload)
}

// Import reconciles an export into the store on behalf of userID. The payload
// is checked before anything is written; after that, taxonomy, learned grade
// thresholds and the user's progress are written in a single transaction.
func (s *Service) Import(ctx context.Context, userID uint, payload Payload) (*ImportResult, error) {
	if !ValidateLanguage(payload, s.mottoes) {
		return nil, &ImportError{Stage: "validate", UserID: userID, Err: ErrWrongLanguage}
	}

	var result *ImportResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result = &ImportResult{NewEmblems: []NewEmblem{}, SkippedFactions: []string{}}

		if err := stampLastImport(tx, userID, s.now()); err != nil {
			return &ImportError{Stage: "user", UserID: userID, Err: err}
		}

		for _, faction := range payload.Factions {
			if !IsTrackedFaction(faction.Key) {
				s.log.Debug("skipping untracked faction", zap.Uint("user_id", userID), zap.String("faction", faction.Key))
				result.SkippedFactions = append(result.SkippedFactions, faction.Key)
				continue
			}
			if err := s.importFaction(tx, userID, faction, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var importErr *ImportError
		if !errors.As(err, &importErr) {
			err = &ImportError{Stage: "commit", UserID: userID, Err: err}
		}
		s.log.Error("import failed", zap.Uint("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.log.Info("import committed",
		zap.Uint("user_id", userID),
		zap.Int("factions", result.Factions),
		zap.Int("emblems", result.Emblems),
		zap.Int("new_emblems", len(result.NewEmblems)),
		zap.Int("thresholds", result.ThresholdsRecorded),
	)
	return result, nil
}

func (s *Service) importFaction(tx *gorm.DB, userID uint, faction FactionPayload, result *ImportResult) error {
	resolved, err := resolveTaxonomy(tx, faction)
	if err != nil {
		return &ImportError{Stage: "taxonomy", UserID: userID, Err: fmt.Errorf("faction %s: %w", faction.Key, err)}
	}
	result.Factions++

	for _, r := range resolved {
		if r.Created {
			result.NewEmblems = append(result.NewEmblems, NewEmblem{
				ID:         r.EmblemID,
				FactionKey: faction.Key,
				Key:        r.Entry.Key(),
				Name:       r.Name,
			})
		}

		if step, ok := LearnThreshold(observationOf(r.Entry)); ok {
			if err := upsertGradeThreshold(tx, r.EmblemID, step); err != nil {
				return &ImportError{Stage: "thresholds", UserID: userID, Err: err}
			}
			result.ThresholdsRecorded++
		}

		if err := upsertProgress(tx, userID, r.EmblemID, r.Entry); err != nil {
			return &ImportError{Stage: "progress", UserID: userID, Err: err}
		}
		result.Emblems++
	}
	return nil
}
