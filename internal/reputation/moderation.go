package reputation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TranslationLocales are the locales moderators may translate emblems into.
var TranslationLocales = []string{"en", "es"}

func isTranslationLocale(locale string) bool {
	for _, l := range TranslationLocales {
		if l == locale {
			return true
		}
	}
	return false
}

type Translation struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type TranslationInput struct {
	Locale      string  `json:"locale"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// TranslationBundle is one export fetched once per site language by the
// translation bookmarklet. Moderators match it against the taxonomy.
type TranslationBundle struct {
	FR map[string]any `json:"fr"`
	EN map[string]any `json:"en"`
	ES map[string]any `json:"es"`
}

// ParseTranslationBundle checks that raw holds a non-empty export for every language.
func ParseTranslationBundle(raw []byte) (TranslationBundle, error) {
	var b TranslationBundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return TranslationBundle{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	exports := []struct {
		locale string
		export map[string]any
	}{{"fr", b.FR}, {"en", b.EN}, {"es", b.ES}}
	for _, e := range exports {
		if len(e.export) == 0 {
			return TranslationBundle{}, fmt.Errorf("%w: missing %s export", ErrMalformedPayload, e.locale)
		}
	}
	return b, nil
}

// ValidateEmblem makes an emblem visible in user-facing views.
func (s *Service) ValidateEmblem(ctx context.Context, emblemID uint) (*models.Emblem, error) {
	var emblem models.Emblem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireEmblem(tx, emblemID); err != nil {
			return err
		}
		if err := tx.Model(&models.Emblem{}).Where("id = ?", emblemID).Update("validated", true).Error; err != nil {
			return err
		}
		return tx.First(&emblem, emblemID).Error
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("emblem validated", zap.Uint("emblem_id", emblemID), zap.String("name", emblem.Name))
	return &emblem, nil
}

func (s *Service) GetEmblemTranslations(ctx context.Context, emblemID uint) (map[string]Translation, error) {
	var rows []models.EmblemTranslation
	if err := s.db.WithContext(ctx).Where("emblem_id = ?", emblemID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]Translation, len(rows))
	for _, r := range rows {
		out[r.Locale] = Translation{Name: r.Name, Description: r.Description}
	}
	return out, nil
}

// SetEmblemTranslations upserts the given translations. An input with neither
// name nor description removes the translation; unknown locales are ignored.
func (s *Service) SetEmblemTranslations(ctx context.Context, emblemID uint, inputs []TranslationInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireEmblem(tx, emblemID); err != nil {
			return err
		}
		for _, in := range inputs {
			if !isTranslationLocale(in.Locale) {
				s.log.Debug("ignoring translation", zap.String("locale", in.Locale), zap.Error(ErrUnsupportedLocale))
				continue
			}
			name, desc := nonEmpty(in.Name), nonEmpty(in.Description)
			if name == nil && desc == nil {
				err := tx.Where("emblem_id = ? AND locale = ?", emblemID, in.Locale).
					Delete(&models.EmblemTranslation{}).Error
				if err != nil {
					return err
				}
				continue
			}
			row := models.EmblemTranslation{EmblemID: emblemID, Locale: in.Locale, Name: name, Description: desc}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "emblem_id"}, {Name: "locale"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "description"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("upsert translation %s: %w", in.Locale, err)
			}
		}
		return nil
	})
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

type AdminEmblem struct {
	models.Emblem
	UserCount int64 `json:"user_count"`
}

type AdminCampaign struct {
	models.Campaign
	Emblems []AdminEmblem `json:"emblems"`
}

type AdminFaction struct {
	models.Faction
	Campaigns []AdminCampaign `json:"campaigns"`
}

// ListTaxonomy returns the full taxonomy, unvalidated emblems included, with
// the number of users having progress on each emblem.
func (s *Service) ListTaxonomy(ctx context.Context) ([]AdminFaction, error) {
	db := s.db.WithContext(ctx)

	var factions []models.Faction
	if err := db.Order("name").Find(&factions).Error; err != nil {
		return nil, err
	}
	var campaigns []models.Campaign
	if err := db.Order("sort_order, name").Find(&campaigns).Error; err != nil {
		return nil, err
	}
	var emblems []models.Emblem
	if err := db.Order("sort_order, name").Find(&emblems).Error; err != nil {
		return nil, err
	}
	var counts []struct {
		EmblemID uint
		Count    int64
	}
	err := db.Model(&models.UserEmblem{}).
		Select("emblem_id, COUNT(*) AS count").
		Group("emblem_id").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	countByEmblem := make(map[uint]int64, len(counts))
	for _, c := range counts {
		countByEmblem[c.EmblemID] = c.Count
	}

	emblemsByCampaign := map[uint][]AdminEmblem{}
	for _, e := range emblems {
		emblemsByCampaign[e.CampaignID] = append(emblemsByCampaign[e.CampaignID], AdminEmblem{Emblem: e, UserCount: countByEmblem[e.ID]})
	}
	campaignsByFaction := map[uint][]AdminCampaign{}
	for _, c := range campaigns {
		list := emblemsByCampaign[c.ID]
		if list == nil {
			list = []AdminEmblem{}
		}
		campaignsByFaction[c.FactionID] = append(campaignsByFaction[c.FactionID], AdminCampaign{Campaign: c, Emblems: list})
	}

	out := make([]AdminFaction, 0, len(factions))
	for _, f := range factions {
		list := campaignsByFaction[f.ID]
		if list == nil {
			list = []AdminCampaign{}
		}
		out = append(out, AdminFaction{Faction: f, Campaigns: list})
	}
	return out, nil
}

// DeleteUserReputationData forgets a user's progress. Grade thresholds learned
// from their imports are kept.
func (s *Service) DeleteUserReputationData(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserEmblem{}).Error; err != nil {
			return err
		}
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("last_import_at", nil)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
		}
		return nil
	})
}
