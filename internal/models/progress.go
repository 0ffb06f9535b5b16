package models

// EmblemGradeThreshold is learned knowledge shared by every user: the metric
// value required to reach Grade of an emblem.
type EmblemGradeThreshold struct {
	EmblemID  uint  `gorm:"primaryKey;autoIncrement:false" json:"emblem_id"`
	Grade     int   `gorm:"primaryKey;autoIncrement:false" json:"grade"`
	Threshold int64 `json:"threshold"`
}

// UserEmblem is the last observed progress of one user on one emblem, as
// reported by the upstream export.
type UserEmblem struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	UserID    uint  `gorm:"uniqueIndex:idx_user_emblem" json:"user_id"`
	EmblemID  uint  `gorm:"uniqueIndex:idx_user_emblem" json:"emblem_id"`
	Value     int64 `json:"value"`
	Threshold int64 `json:"threshold"`
	Grade     int   `json:"grade"`
	Completed bool  `json:"completed"`
}
