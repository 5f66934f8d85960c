package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusComplete   TaskStatus = "complete"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusComplete:
		return true
	}
	return false
}

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID  `json:"userId" gorm:"type:uuid;index;not null"`
	Title       string     `json:"title" gorm:"not null"`
	Description string     `json:"description" gorm:"not null"`
	Status      TaskStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	IsComplete  bool       `json:"isComplete" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Toggle flips completion and mirrors it into Status. An in-progress task
// is treated like pending: the first toggle completes it.
func (t *Task) Toggle() {
	t.IsComplete = !t.IsComplete
	if t.IsComplete {
		t.Status = StatusComplete
	} else {
		t.Status = StatusPending
	}
}
