package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Driver maps a normalized vehicle plate to the person renting it. Rows are
// owned by the external onboarding process; this service only reads them.
type Driver struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	LicencePlate string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"licence_plate"`
	DriverName   string    `gorm:"type:text;not null" json:"driver_name"`
	Email        string    `gorm:"type:text" json:"email"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Driver) TableName() string {
	return "drivers"
}

func (d *Driver) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
