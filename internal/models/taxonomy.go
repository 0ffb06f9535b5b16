package models

// Faction is a top-level reputation track, keyed by its upstream identifier.
type Faction struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Key   string `gorm:"uniqueIndex" json:"key"`
	Name  string `json:"name"`
	Motto string `json:"motto"`
}

type Campaign struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	FactionID   uint    `gorm:"uniqueIndex:idx_campaign_faction_key" json:"faction_id"`
	Key         string  `gorm:"uniqueIndex:idx_campaign_faction_key" json:"key"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	SortOrder   int     `json:"sort_order"`
}

type Emblem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	CampaignID  uint    `gorm:"uniqueIndex:idx_emblem_campaign_key" json:"campaign_id"`
	Key         string  `gorm:"uniqueIndex:idx_emblem_campaign_key" json:"key"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Image       *string `json:"image"`
	MaxGrade    int     `json:"max_grade"`
	SortOrder   int     `json:"sort_order"`
	Validated   bool    `json:"validated"`
}

// EmblemTranslation holds moderator-maintained copy for a non-default locale.
type EmblemTranslation struct {
	EmblemID    uint    `gorm:"primaryKey;autoIncrement:false" json:"emblem_id"`
	Locale      string  `gorm:"primaryKey" json:"locale"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
