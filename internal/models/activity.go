package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog is the audit trail for room and recommendation changes.
type ActivityLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Entity    string         `gorm:"column:table_name;size:64;not null" json:"entity"`
	Operation string         `gorm:"column:operation_type;size:16;not null" json:"operation"`
	RecordID  uint           `gorm:"column:record_id;not null" json:"record_id"`
	OldValues datatypes.JSON `gorm:"column:old_values" json:"old_values,omitempty"`
	NewValues datatypes.JSON `gorm:"column:new_values" json:"new_values,omitempty"`
	UserID    string         `gorm:"column:user_id;size:64" json:"user_id"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}
