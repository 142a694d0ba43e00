package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TicketStatus string

const (
	// TicketStatusPending is the only status this service ever writes.
	// PAID is reached exclusively through external administrative tooling.
	TicketStatusPending TicketStatus = "PENDING"
	TicketStatusPaid    TicketStatus = "PAID"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Ticket is one detected parking fine. Field values come from the Gemini
// extraction and default to "UNKNOWN" when extraction cannot resolve them.
type Ticket struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"ticket_id"`
	LicencePlate       string             `gorm:"type:varchar(32);not null;index" json:"licence_plate"`
	IssueDate          string             `gorm:"type:text" json:"issue_date"`
	ReferenceNumber    string             `gorm:"type:text" json:"reference_number"`
	Price              string             `gorm:"type:text" json:"price"`
	Location           string             `gorm:"type:text" json:"location"`
	Authority          string             `gorm:"type:text" json:"authority"`
	DriverName         string             `gorm:"type:text" json:"driver_name"`
	Address            string             `gorm:"type:text" json:"address"`
	DriverEmail        string             `gorm:"type:text" json:"driver_email"`
	ImageBucket        string             `gorm:"type:text;not null" json:"image_bucket"`
	ImageKey           string             `gorm:"type:text;not null" json:"image_key"`
	ImagePath          string             `gorm:"type:text;not null" json:"image_path"`
	Status             TicketStatus       `gorm:"type:ticket_status;not null;default:PENDING" json:"status"`
	NotificationStatus NotificationStatus `gorm:"type:notification_status;not null;default:PENDING" json:"notification_status"`
	ExtractedFields    datatypes.JSONMap  `gorm:"type:jsonb" json:"extracted_fields,omitempty"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Ticket) TableName() string {
	return "tickets"
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
