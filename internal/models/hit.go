package models

import (
	"time"

	"gorm.io/datatypes"
)

// Route identifier stored on every hit recorded by the tracking endpoint
const TrackRouteID = "track"

// Represents one observed request to the tracking endpoint
type APIHit struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RequestID   string         `gorm:"size:255" json:"request_id"`
	RequestType string         `gorm:"size:10;index" json:"request_type"`
	RequestTime time.Time      `gorm:"not null" json:"request_time"`
	Payload     datatypes.JSON `json:"payload"`
	ContentType *string        `gorm:"type:text" json:"content_type"`
	IPAddress   string         `gorm:"size:50;index" json:"ip_address"`
	OS          string         `gorm:"size:50" json:"os"`
	UserAgent   string         `gorm:"type:text" json:"user_agent"`
}

func (APIHit) TableName() string {
	return "api_hits"
}

// HasPayload reports whether the hit carried a JSON body
func (h *APIHit) HasPayload() bool {
	return len(h.Payload) > 0 && string(h.Payload) != "null"
}

// Number of hits sharing one value of a grouped column
type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
