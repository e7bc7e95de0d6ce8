package models

import "time"

// TrailTemplate is an administrator-authored reusable trail blueprint.
type TrailTemplate struct {
	ID          string `gorm:"primaryKey;size:32"`
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`
	LifeArea    string `gorm:"size:64;index"`

	// Access criteria columns. Tags and roles are JSON-encoded string arrays.
	// Booleans that are meaningfully false at create time carry no column
	// default: GORM drops zero values from inserts when one is set.
	AvailableToAll bool
	RequiredLevel  int    `gorm:"default:0"`
	RequiredTags   string `gorm:"type:json"`
	RequiredRoles  string `gorm:"type:json"`

	BadgeID      *string `gorm:"size:32"`
	AutoComplete bool
	Active       bool `gorm:"default:true;index"`
	Pinned       bool `gorm:"default:false"`
	PinnedOrder  int  `gorm:"default:0"`
	OrderIndex   int  `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Badge   *TrailBadge       `gorm:"foreignKey:BadgeID"`
	Stages  []StageDefinition `gorm:"foreignKey:TemplateID"`
	Prereqs []TemplatePrereq  `gorm:"foreignKey:TemplateID"`
}

// StageDefinition is one discrete step within a trail. A stage belongs to
// either a template or an instance, never both: instance stages are
// snapshots taken when the instance starts.
type StageDefinition struct {
	ID          string  `gorm:"primaryKey;size:32"`
	TemplateID  *string `gorm:"size:32;index"`
	InstanceID  *string `gorm:"size:32;index"`
	Name        string  `gorm:"not null"`
	Description string  `gorm:"type:text"`
	Guidance    string  `gorm:"type:text"`
	Required    bool
	TargetValue int `gorm:"default:1"`
	OrderIndex  int
}

// TemplatePrereq declares that a template requires prior completion of
// another template. Prereq graphs are kept acyclic by configuration.
type TemplatePrereq struct {
	TemplateID string `gorm:"primaryKey;size:32"`
	RequiresID string `gorm:"primaryKey;size:32"`

	Requires TrailTemplate `gorm:"foreignKey:RequiresID"`
}
