package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/reputation-tracker/internal/models"
	"gorm.io/gorm"
)

type UserInfo struct {
	ID           uint       `json:"id"`
	Username     string     `json:"username"`
	LastImportAt *time.Time `json:"lastImportAt"`
}

type FactionInfo struct {
	ID    uint   `json:"id"`
	Key   string `json:"key"`
	Name  string `json:"name"`
	Motto string `json:"motto"`
}

type CampaignInfo struct {
	ID          uint   `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FactionID   uint   `json:"factionId"`
}

type EmblemInfo struct {
	ID              uint        `json:"id"`
	Key             string      `json:"key"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	Image           string      `json:"image"`
	MaxGrade        int         `json:"maxGrade"`
	MaxThreshold    *int64      `json:"maxThreshold"`
	GradeThresholds []GradeStep `json:"gradeThresholds"`
	CampaignID      uint        `json:"campaignId"`
	FactionKey      string      `json:"factionKey"`
	CampaignName    string      `json:"campaignName"`
}

// Progress is a user's stored progress on an emblem. Grade and Completed are
// the raw reported values; EffectiveGrade counts a completed binary
// achievement as grade 1.
type Progress struct {
	UserID         uint   `json:"userId"`
	Username       string `json:"username"`
	Value          int64  `json:"value"`
	Threshold      int64  `json:"threshold"`
	Grade          int    `json:"grade"`
	EffectiveGrade int    `json:"effectiveGrade"`
	Completed      bool   `json:"completed"`
}

type UserEmblem struct {
	EmblemInfo
	Progress *Progress `json:"progress"`
}

type GroupEmblem struct {
	EmblemInfo
	UserProgress map[uint]Progress `json:"userProgress"`
}

type Campaign[E any] struct {
	CampaignInfo
	Emblems []E `json:"emblems"`
}

type Faction[E any] struct {
	FactionInfo
	Campaigns []Campaign[E] `json:"campaigns"`
}

type UserReputations struct {
	User     UserInfo              `json:"user"`
	Factions []Faction[UserEmblem] `json:"factions"`
}

type GroupReputations struct {
	Users    []UserInfo             `json:"users"`
	Factions []Faction[GroupEmblem] `json:"factions"`
}

type readOptions struct {
	locale string
}

type ReadOption func(*readOptions)

// WithLocale overlays moderator translations for locale on emblem copy.
func WithLocale(locale string) ReadOption {
	return func(o *readOptions) { o.locale = locale }
}

// catalog is the validated taxonomy with its threshold knowledge.
type catalog struct {
	factions     []models.Faction
	campaigns    map[uint][]models.Campaign
	emblems      map[uint][]models.Emblem
	ladders      map[uint][]GradeStep
	translations map[uint]models.EmblemTranslation
}

func (s *Service) loadCatalog(db *gorm.DB, opts readOptions) (*catalog, error) {
	c := &catalog{
		campaigns:    map[uint][]models.Campaign{},
		emblems:      map[uint][]models.Emblem{},
		ladders:      map[uint][]GradeStep{},
		translations: map[uint]models.EmblemTranslation{},
	}

	if err := db.Order("name, id").Find(&c.factions).Error; err != nil {
		return nil, fmt.Errorf("load factions: %w", err)
	}

	var campaigns []models.Campaign
	if err := db.Order("sort_order, id").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	for _, campaign := range campaigns {
		c.campaigns[campaign.FactionID] = append(c.campaigns[campaign.FactionID], campaign)
	}

	var emblems []models.Emblem
	if err := db.Where("validated = ?", true).Order("sort_order, id").Find(&emblems).Error; err != nil {
		return nil, fmt.Errorf("load emblems: %w", err)
	}
	for _, emblem := range emblems {
		c.emblems[emblem.CampaignID] = append(c.emblems[emblem.CampaignID], emblem)
	}

	var thresholds []models.EmblemGradeThreshold
	if err := db.Order("emblem_id, grade").Find(&thresholds).Error; err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	for _, t := range thresholds {
		c.ladders[t.EmblemID] = append(c.ladders[t.EmblemID], GradeStep{Grade: t.Grade, Threshold: t.Threshold})
	}

	if opts.locale != "" {
		var translations []models.EmblemTranslation
		if err := db.Where("locale = ?", opts.locale).Find(&translations).Error; err != nil {
			return nil, fmt.Errorf("load translations: %w", err)
		}
		for _, t := range translations {
			c.translations[t.EmblemID] = t
		}
	}

	return c, nil
}

func (c *catalog) emblemInfo(f models.Faction, campaign models.Campaign, e models.Emblem) EmblemInfo {
	info := EmblemInfo{
		ID:              e.ID,
		Key:             e.Key,
		Name:            e.Name,
		Description:     e.Description,
		MaxGrade:        e.MaxGrade,
		GradeThresholds: c.ladders[e.ID],
		CampaignID:      campaign.ID,
		FactionKey:      f.Key,
		CampaignName:    campaign.Name,
	}
	if e.Image != nil {
		info.Image = *e.Image
	}
	if info.GradeThresholds == nil {
		info.GradeThresholds = []GradeStep{}
	} else {
		top := info.GradeThresholds[len(info.GradeThresholds)-1].Threshold
		info.MaxThreshold = &top
	}
	if t, ok := c.translations[e.ID]; ok {
		if t.Name != nil && *t.Name != "" {
			info.Name = *t.Name
		}
		if t.Description != nil && *t.Description != "" {
			info.Description = *t.Description
		}
	}
	return info
}

// buildTree nests every validated emblem under its campaign and faction,
// attaching whatever per-emblem data attach returns.
func buildTree[E any](c *catalog, attach func(EmblemInfo) E) []Faction[E] {
	factions := make([]Faction[E], 0, len(c.factions))
	for _, f := range c.factions {
		faction := Faction[E]{
			FactionInfo: FactionInfo{ID: f.ID, Key: f.Key, Name: f.Name, Motto: f.Motto},
			Campaigns:   []Campaign[E]{},
		}
		for _, campaign := range c.campaigns[f.ID] {
			info := CampaignInfo{ID: campaign.ID, Key: campaign.Key, Name: campaign.Name, FactionID: f.ID}
			if campaign.Description != nil {
				info.Description = *campaign.Description
			}
			node := Campaign[E]{CampaignInfo: info, Emblems: []E{}}
			for _, e := range c.emblems[campaign.ID] {
				node.Emblems = append(node.Emblems, attach(c.emblemInfo(f, campaign, e)))
			}
			faction.Campaigns = append(faction.Campaigns, node)
		}
		factions = append(factions, faction)
	}
	return factions
}

type progressRow struct {
	EmblemID  uint
	UserID    uint
	Username  string
	Value     int64
	Threshold int64
	Grade     int
	Completed bool
}

func (r progressRow) progress() Progress {
	return Progress{
		UserID:    r.UserID,
		Username:  r.Username,
		Value:     r.Value,
		Threshold: r.Threshold,
		Grade:     r.Grade,
		Completed: r.Completed,
	}
}

func loadProgress(db *gorm.DB, userIDs []uint) ([]progressRow, error) {
	var rows []progressRow
	err := db.Table("user_emblems AS ue").
		Select("ue.emblem_id, ue.user_id, u.username, ue.value, ue.threshold, ue.grade, ue.completed").
		Joins("JOIN users u ON u.id = ue.user_id AND u.deleted_at IS NULL").
		Where("ue.user_id IN ?", userIDs).
		Order("u.username").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return rows, nil
}

func toUserInfo(u models.User) UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, LastImportAt: u.LastImportAt}
}

// GetUserReputations returns every validated emblem with the user's progress,
// or a nil progress where the user never imported it.
func (s *Service) GetUserReputations(ctx context.Context, userID uint, opts ...ReadOption) (*UserReputations, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
		}
		return nil, err
	}

	c, err := s.loadCatalog(db, o)
	if err != nil {
		return nil, err
	}
	rows, err := loadProgress(db, []uint{userID})
	if err != nil {
		return nil, err
	}
	byEmblem := make(map[uint]Progress, len(rows))
	for _, r := range rows {
		byEmblem[r.EmblemID] = r.progress()
	}

	return &UserReputations{
		User: toUserInfo(user),
		Factions: buildTree(c, func(info EmblemInfo) UserEmblem {
			out := UserEmblem{EmblemInfo: info}
			if p, ok := byEmblem[info.ID]; ok {
				p.EffectiveGrade = effectiveGrade(p, info.MaxGrade)
				out.Progress = &p
			}
			return out
		}),
	}, nil
}

// GetGroupReputations returns every validated emblem with the progress of
// each of the given users. Progress of anyone else is never included.
func (s *Service) GetGroupReputations(ctx context.Context, memberIDs []uint, opts ...ReadOption) (*GroupReputations, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(memberIDs) == 0 {
		return &GroupReputations{Users: []UserInfo{}, Factions: []Faction[GroupEmblem]{}}, nil
	}
	db := s.db.WithContext(ctx)

	var users []models.User
	if err := db.Where("id IN ?", memberIDs).Order("username").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	infos := make([]UserInfo, 0, len(users))
	for _, u := range users {
		infos = append(infos, toUserInfo(u))
	}

	c, err := s.loadCatalog(db, o)
	if err != nil {
		return nil, err
	}
	rows, err := loadProgress(db, memberIDs)
	if err != nil {
		return nil, err
	}
	byEmblem := map[uint]map[uint]Progress{}
	for _, r := range rows {
		if byEmblem[r.EmblemID] == nil {
			byEmblem[r.EmblemID] = map[uint]Progress{}
		}
		byEmblem[r.EmblemID][r.UserID] = r.progress()
	}

	return &GroupReputations{
		Users: infos,
		Factions: buildTree(c, func(info EmblemInfo) GroupEmblem {
			progress := make(map[uint]Progress, len(byEmblem[info.ID]))
			for userID, p := range byEmblem[info.ID] {
				p.EffectiveGrade = effectiveGrade(p, info.MaxGrade)
				progress[userID] = p
			}
			return GroupEmblem{EmblemInfo: info, UserProgress: progress}
		}),
	}, nil
}
