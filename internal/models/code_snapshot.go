package models

import "time"

const DefaultLanguage = "javascript"

// CodeSnapshot is the last-writer-wins shared editor content of a room.
type CodeSnapshot struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RoomID    uint      `gorm:"column:room_id;not null;uniqueIndex" json:"room_id"`
	Language  string    `gorm:"column:language;size:50;not null" json:"language"`
	Content   string    `gorm:"column:code_content;type:text" json:"content"`
	UpdatedBy string    `gorm:"column:updated_by;size:64" json:"updated_by"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (CodeSnapshot) TableName() string { return "code_sessions" }
