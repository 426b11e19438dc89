package models

import (
	"time"

	"gorm.io/datatypes"
)

type OverallRating string

const (
	RatingExcellent OverallRating = "excellent"
	RatingGood      OverallRating = "good"
	RatingAverage   OverallRating = "average"
	RatingPoor      OverallRating = "poor"
)

func (r OverallRating) IsValid() bool {
	switch r {
	case RatingExcellent, RatingGood, RatingAverage, RatingPoor:
		return true
	default:
		return false
	}
}

type HireRecommendation string

const (
	RecommendHire   HireRecommendation = "hire"
	RecommendMaybe  HireRecommendation = "maybe"
	RecommendReject HireRecommendation = "reject"
)

func (r HireRecommendation) IsValid() bool {
	switch r {
	case RecommendHire, RecommendMaybe, RecommendReject:
		return true
	default:
		return false
	}
}

// Scores are the numeric sub-scores of a feedback, each expected in 0..10.
type Scores struct {
	Technical      int `json:"technical"`
	Communication  int `json:"communication"`
	ProblemSolving int `json:"problem_solving"`
	// Detail holds optional per-skill scores ("System Design": 7, ...).
	Detail map[string]int `json:"detail,omitempty"`
}

// Feedback is one interviewer's assessment; at most one per (room, interviewer).
type Feedback struct {
	ID                  uint               `gorm:"primaryKey" json:"id"`
	RoomID              uint               `gorm:"column:room_id;not null;uniqueIndex:uniq_room_interviewer" json:"room_id"`
	InterviewerID       string             `gorm:"column:interviewer_id;size:64;not null;uniqueIndex:uniq_room_interviewer" json:"interviewer_id"`
	CandidateID         string             `gorm:"column:candidate_id;size:64;not null" json:"candidate_id"`
	TechnicalScore      int                `gorm:"column:technical_score" json:"technical_score"`
	CommunicationScore  int                `gorm:"column:communication_score" json:"communication_score"`
	ProblemSolvingScore int                `gorm:"column:problem_solving_score" json:"problem_solving_score"`
	ScoreDetail         datatypes.JSON     `gorm:"column:score_detail" json:"score_detail,omitempty"`
	OverallRating       OverallRating      `gorm:"column:overall_rating;size:16" json:"overall_rating"`
	Text                string             `gorm:"column:feedback_text;type:text" json:"feedback_text"`
	Recommendation      HireRecommendation `gorm:"column:recommendation;size:16" json:"recommendation"`
	CreatedAt           time.Time          `gorm:"column:created_at" json:"created_at"`
}

func (Feedback) TableName() string { return "interview_feedback" }
