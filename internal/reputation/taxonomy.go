package reputation

import (
	"fmt"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// resolvedEmblem ties an emblem entry of the export to its stored row.
type resolvedEmblem struct {
	CampaignID uint
	EmblemID   uint
	Created    bool
	Name       string
	Entry      EmblemPayload
}

// resolveTaxonomy creates or refreshes the faction, campaign and emblem rows
// referenced by one tracked faction of an export.
func resolveTaxonomy(tx *gorm.DB, f FactionPayload) ([]resolvedEmblem, error) {
	faction, err := upsertFaction(tx, f)
	if err != nil {
		return nil, err
	}

	var resolved []resolvedEmblem
	switch body := f.Body.(type) {
	case CampaignedBody:
		for i, c := range body.Campaigns {
			name := c.Title
			if name == "" {
				name = c.Key
			}
			campaign, err := upsertCampaign(tx, models.Campaign{
				FactionID:   faction.ID,
				Key:         c.Key,
				Name:        name,
				Description: c.Desc,
				SortOrder:   i,
			})
			if err != nil {
				return nil, err
			}
			emblems, err := resolveEmblems(tx, campaign.ID, c.Emblems)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, emblems...)
		}
	case FlatBody:
		empty := ""
		campaign, err := upsertCampaign(tx, models.Campaign{
			FactionID:   faction.ID,
			Key:         defaultCampaignKey,
			Name:        faction.Name,
			Description: &empty,
			SortOrder:   0,
		})
		if err != nil {
			return nil, err
		}
		resolved, err = resolveEmblems(tx, campaign.ID, body.Emblems)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("faction %s has no body", f.Key)
	}
	return resolved, nil
}

// upsertFaction inserts the faction on first sight. Later imports only
// refresh a non-empty motto; the canonical name is never overwritten.
func upsertFaction(tx *gorm.DB, f FactionPayload) (models.Faction, error) {
	row := models.Faction{Key: f.Key, Name: FactionName(f.Key), Motto: f.Motto}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"motto": gorm.Expr("CASE WHEN excluded.motto <> '' THEN excluded.motto ELSE factions.motto END"),
		}),
	}).Create(&row).Error
	if err != nil {
		return models.Faction{}, fmt.Errorf("upsert faction %s: %w", f.Key, err)
	}

	var faction models.Faction
	if err := tx.Where("key = ?", f.Key).First(&faction).Error; err != nil {
		return models.Faction{}, fmt.Errorf("load faction %s: %w", f.Key, err)
	}
	return faction, nil
}

// upsertCampaign inserts the campaign or refreshes its sort order, and its
// description when a new one is supplied.
func upsertCampaign(tx *gorm.DB, c models.Campaign) (models.Campaign, error) {
	row := c
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "faction_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"description": gorm.Expr("COALESCE(excluded.description, campaigns.description)"),
			"sort_order":  gorm.Expr("excluded.sort_order"),
		}),
	}).Create(&row).Error
	if err != nil {
		return models.Campaign{}, fmt.Errorf("upsert campaign %s: %w", c.Key, err)
	}

	var campaign models.Campaign
	if err := tx.Where("faction_id = ? AND key = ?", c.FactionID, c.Key).First(&campaign).Error; err != nil {
		return models.Campaign{}, fmt.Errorf("load campaign %s: %w", c.Key, err)
	}
	return campaign, nil
}

func resolveEmblems(tx *gorm.DB, campaignID uint, entries []EmblemPayload) ([]resolvedEmblem, error) {
	resolved := make([]resolvedEmblem, 0, len(entries))
	for i, entry := range entries {
		key := entry.Key()
		if key == "" {
			continue
		}
		emblem, created, err := upsertEmblem(tx, campaignID, i, entry)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, resolvedEmblem{
			CampaignID: campaignID,
			EmblemID:   emblem.ID,
			Created:    created,
			Name:       emblem.Name,
			Entry:      entry,
		})
	}
	return resolved, nil
}

// upsertEmblem creates the emblem unvalidated on first sight. On later
// sightings only the image (when present) and the sort order are refreshed:
// name, description and max grade may have been curated by a moderator.
func upsertEmblem(tx *gorm.DB, campaignID uint, sortOrder int, entry EmblemPayload) (models.Emblem, bool, error) {
	key := entry.Key()

	var emblem models.Emblem
	result := tx.Where("campaign_id = ? AND key = ?", campaignID, key).Limit(1).Find(&emblem)
	if result.Error != nil {
		return models.Emblem{}, false, fmt.Errorf("load emblem %s: %w", key, result.Error)
	}

	if result.RowsAffected > 0 {
		updates := map[string]interface{}{"sort_order": sortOrder}
		if entry.Image != "" {
			updates["image"] = entry.Image
		}
		if err := tx.Model(&emblem).Updates(updates).Error; err != nil {
			return models.Emblem{}, false, fmt.Errorf("refresh emblem %s: %w", key, err)
		}
		return emblem, false, nil
	}

	name := string(entry.DisplayName)
	if name == "" {
		name = key
	}
	emblem = models.Emblem{
		CampaignID:  campaignID,
		Key:         key,
		Name:        name,
		Description: string(entry.Description),
		MaxGrade:    int(entry.MaxGrade.Or(5)),
		SortOrder:   sortOrder,
		Validated:   false,
	}
	if entry.Image != "" {
		image := entry.Image
		emblem.Image = &image
	}
	if err := tx.Create(&emblem).Error; err != nil {
		return models.Emblem{}, false, fmt.Errorf("create emblem %s: %w", key, err)
	}
	return emblem, true, nil
}
