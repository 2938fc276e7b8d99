package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Watcher is a scheduled predicate over one issue. Triggers only surface
// reminders; a watcher never mutates issue state.
type Watcher struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID      uuid.UUID      `gorm:"column:issue_id;type:uuid;not null;index" json:"issue_id"`
	WatchType    string         `gorm:"column:watch_type;not null" json:"watch_type"`
	Params       datatypes.JSON `gorm:"column:params;type:jsonb" json:"params,omitempty"`
	Active       bool           `gorm:"column:active;not null;default:true;index" json:"active"`
	CadenceHours int            `gorm:"column:cadence_hours;not null" json:"cadence_hours"`
	NextCheckAt  time.Time      `gorm:"column:next_check_at;not null;index" json:"next_check_at"`
	TriggerCount int            `gorm:"column:trigger_count;not null;default:0" json:"trigger_count"`
	TriggeredAt  *time.Time     `gorm:"column:triggered_at" json:"triggered_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Watcher) TableName() string { return "watcher" }

// Handoff delegates expected work from one person to another within an issue.
type Handoff struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID        uuid.UUID  `gorm:"column:issue_id;type:uuid;not null;index" json:"issue_id"`
	FromPerson     string     `gorm:"column:from_person;not null" json:"from_person"`
	ToPerson       string     `gorm:"column:to_person;not null" json:"to_person"`
	Expectation    string     `gorm:"column:expectation;not null" json:"expectation"`
	DoneDefinition string     `gorm:"column:done_definition" json:"done_definition,omitempty"`
	DueAt          *time.Time `gorm:"column:due_at" json:"due_at,omitempty"`
	State          string     `gorm:"column:state;not null;default:'proposed'" json:"state"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Handoff) TableName() string { return "handoff" }
