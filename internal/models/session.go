package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Session maps an opaque bearer token to a user. It has no expiry and stays
// valid until deleted.
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;index;not null"`
	CreatedAt time.Time `json:"createdAt"`
}
