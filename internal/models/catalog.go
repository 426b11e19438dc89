package models

// Application and InterviewerProfile are owned by the catalog service.
// This process only reads them.

type Application struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	CandidateUserID string `gorm:"column:candidate_user_id;size:64;not null" json:"candidate_user_id"`
	EmployerUserID  string `gorm:"column:employer_user_id;size:64" json:"employer_user_id"`
	JobTitle        string `gorm:"column:job_title;size:255" json:"job_title"`
}

func (Application) TableName() string { return "job_applications" }

type InterviewerProfile struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          string `gorm:"column:user_id;size:64;uniqueIndex;not null" json:"user_id"`
	HourlyRateCents int64  `gorm:"column:hourly_rate_cents;not null;default:0" json:"hourly_rate_cents"`
	Currency        string `gorm:"column:currency;size:10;not null;default:USD" json:"currency"`
}

func (InterviewerProfile) TableName() string { return "interviewer_profiles" }
