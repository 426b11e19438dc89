package models

import "time"

type RoomStatus string

const (
	RoomScheduled RoomStatus = "scheduled"
	RoomActive    RoomStatus = "active"
	RoomCompleted RoomStatus = "completed"
	RoomCancelled RoomStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s RoomStatus) Terminal() bool {
	return s == RoomCompleted || s == RoomCancelled
}

func (s RoomStatus) IsValid() bool {
	switch s {
	case RoomScheduled, RoomActive, RoomCompleted, RoomCancelled:
		return true
	default:
		return false
	}
}

// Room is one interview instance.
type Room struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Code            string     `gorm:"column:room_code;size:64;uniqueIndex;not null" json:"room_code"`
	Name            string     `gorm:"column:room_name;size:255;not null" json:"room_name"`
	ApplicationID   uint       `gorm:"column:job_application_id;index;not null" json:"application_id"`
	ScheduledAt     time.Time  `gorm:"column:scheduled_time;not null" json:"scheduled_time"`
	DurationMinutes int        `gorm:"column:duration_minutes;not null;default:60" json:"duration_minutes"`
	Status          RoomStatus `gorm:"column:status;size:16;index;not null;default:scheduled" json:"status"`
	CreatedBy       string     `gorm:"column:created_by;size:64;not null" json:"created_by"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	StartedAt       *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt         *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`

	Participants []Participant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
}

func (Room) TableName() string { return "interview_rooms" }
