package models

import "time"

type NoticeKind string

const (
	NoticeScheduled NoticeKind = "interview_scheduled"
	NoticeAssigned  NoticeKind = "interview_assigned"
	NoticeCancelled NoticeKind = "interview_cancelled"
	NoticeFeedback  NoticeKind = "feedback_submitted"
)

// Notice is one message handed to the notification dispatcher.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	RoomCode  string     `json:"room_code,omitempty"`
	ActionURL string     `json:"action_url,omitempty"`
}

// Notification is the in-app copy of a delivered notice.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"column:user_id;size:64;index;not null" json:"user_id"`
	Kind      NoticeKind `gorm:"column:notification_type;size:32;not null" json:"kind"`
	Title     string     `gorm:"column:title;size:255;not null" json:"title"`
	Message   string     `gorm:"column:message;type:text;not null" json:"message"`
	ActionURL string     `gorm:"column:action_url;size:500" json:"action_url,omitempty"`
	IsRead    bool       `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
