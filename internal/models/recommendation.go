package models

import "time"

type RecommendationStatus string

const (
	RecommendationPending     RecommendationStatus = "pending"
	RecommendationAccepted    RecommendationStatus = "accepted"
	RecommendationRejected    RecommendationStatus = "rejected"
	RecommendationNotSelected RecommendationStatus = "not_selected"
)

// Recommendation proposes an interviewer for an application.
type Recommendation struct {
	ID            uint                 `gorm:"primaryKey" json:"id"`
	ApplicationID uint                 `gorm:"column:application_id;index;not null" json:"application_id"`
	RecommendedBy string               `gorm:"column:recommended_by;size:64;not null" json:"recommended_by"`
	InterviewerID string               `gorm:"column:interviewer_id;size:64;not null" json:"interviewer_id"`
	Notes         string               `gorm:"column:recommendation_notes;type:text" json:"notes"`
	Status        RecommendationStatus `gorm:"column:status;size:16;not null;default:pending" json:"status"`
	CreatedAt     time.Time            `gorm:"column:created_at" json:"created_at"`
}

func (Recommendation) TableName() string { return "interviewer_recommendations" }
