package models

import "time"

type EarningStatus string

const (
	EarningPending   EarningStatus = "pending"
	EarningConfirmed EarningStatus = "confirmed"
	EarningPaid      EarningStatus = "paid"
)

// Next returns the only status reachable from s.
func (s EarningStatus) Next() (EarningStatus, bool) {
	switch s {
	case EarningPending:
		return EarningConfirmed, true
	case EarningConfirmed:
		return EarningPaid, true
	default:
		return "", false
	}
}

// Earning is the payout owed to one interviewer for one completed room.
// Money is kept in minor units (cents).
type Earning struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	InterviewerID   string        `gorm:"column:interviewer_id;size:64;not null;uniqueIndex:uniq_interviewer_room" json:"interviewer_id"`
	RoomID          uint          `gorm:"column:interview_room_id;not null;uniqueIndex:uniq_interviewer_room" json:"room_id"`
	DurationMinutes int           `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	HourlyRateCents int64         `gorm:"column:hourly_rate_cents;not null" json:"hourly_rate_cents"`
	AmountCents     int64         `gorm:"column:amount_cents;not null" json:"amount_cents"`
	Currency        string        `gorm:"column:currency;size:10;not null;default:USD" json:"currency"`
	Status          EarningStatus `gorm:"column:status;size:16;not null;default:pending" json:"status"`
	CreatedAt       time.Time     `gorm:"column:created_at" json:"created_at"`
	ConfirmedAt     *time.Time    `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	PaidAt          *time.Time    `gorm:"column:paid_at" json:"paid_at,omitempty"`
}

func (Earning) TableName() string { return "interviewer_earnings" }

// EarningAmount computes duration/60 x rate, rounded half up to the cent.
func EarningAmount(durationMinutes int, hourlyRateCents int64) int64 {
	if durationMinutes <= 0 || hourlyRateCents <= 0 {
		return 0
	}
	return (int64(durationMinutes)*hourlyRateCents + 30) / 60
}
