package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is the read-only owner record for rental units. Shop registration and
// approval live outside this service; rows here are maintained by the catalog
// collaborator.
type Shop struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	Approved  bool      `gorm:"column:approved;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
