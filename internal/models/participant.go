package models

import "time"

type ParticipantRole string

const (
	RoleCandidate   ParticipantRole = "candidate"
	RoleInterviewer ParticipantRole = "interviewer"
	RoleObserver    ParticipantRole = "observer"
)

func (r ParticipantRole) IsValid() bool {
	switch r {
	case RoleCandidate, RoleInterviewer, RoleObserver:
		return true
	default:
		return false
	}
}

// Participant authorizes one user to attend one room.
// (room_id, user_id) is unique.
type Participant struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	RoomID   uint            `gorm:"column:room_id;not null;uniqueIndex:uniq_room_user" json:"room_id"`
	UserID   string          `gorm:"column:user_id;size:64;not null;uniqueIndex:uniq_room_user" json:"user_id"`
	Role     ParticipantRole `gorm:"column:role;size:16;not null" json:"role"`
	JoinedAt *time.Time      `gorm:"column:joined_at" json:"joined_at,omitempty"`
	LeftAt   *time.Time      `gorm:"column:left_at" json:"left_at,omitempty"`
	IsActive bool            `gorm:"column:is_active;not null;default:false" json:"is_active"`
}

func (Participant) TableName() string { return "interview_participants" }
