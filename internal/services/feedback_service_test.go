package services

import (
	"context"
	"testing"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/testhelpers"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodFeedback() FeedbackInput {
	return FeedbackInput{
		Scores:         models.Scores{Technical: 8, Communication: 7, ProblemSolving: 9, Detail: map[string]int{"System Design": 6}},
		Rating:         models.RatingGood,
		Text:           "  solid fundamentals  ",
		Recommendation: models.RecommendHire,
	}
}

func TestSubmitFeedback_CompletesRoomAndCreatesEarning(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testhelpers.SeedInterviewer(t, e.db, "int-1", 4000)
	room := e.schedule(t, "int-1")

	_, _, err := e.rooms.AuthorizeJoin(ctx, room.Code, candidate)
	require.NoError(t, err)
	_, _, err = e.rooms.AuthorizeJoin(ctx, room.Code, interviewer)
	require.NoError(t, err)

	fb, earning, err := e.feedback.Submit(ctx, room.Code, interviewer, goodFeedback())
	require.NoError(t, err)
	assert.Equal(t, "solid fundamentals", fb.Text)
	assert.Equal(t, candidate.UserID, fb.CandidateID)
	assert.JSONEq(t, `{"System Design":6}`, string(fb.ScoreDetail))

	// 90 minutes at $40/h
	assert.Equal(t, models.EarningPending, earning.Status)
	assert.Equal(t, int64(6000), earning.AmountCents)
	assert.Equal(t, int64(4000), earning.HourlyRateCents)
	assert.Equal(t, 90, earning.DurationMinutes)

	got, err := e.rooms.Get(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, models.RoomCompleted, got.Status)
	assert.NotNil(t, got.EndedAt)

	notices := e.notifier.byKind(models.NoticeFeedback)
	require.Len(t, notices, 1)
	assert.Equal(t, employer.UserID, notices[0].UserID)
}

func TestSubmitFeedback_Duplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testhelpers.SeedInterviewer(t, e.db, "int-1", 3000)
	room := e.schedule(t, "int-1")

	_, _, err := e.feedback.Submit(ctx, room.Code, interviewer, goodFeedback())
	require.NoError(t, err)
	_, _, err = e.feedback.Submit(ctx, room.Code, interviewer, goodFeedback())
	assert.True(t, utils.IsCode(err, utils.CodeDuplicate), "got %v", err)

	var n int64
	require.NoError(t, e.db.Model(&models.Feedback{}).Where("room_id = ?", room.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	require.NoError(t, e.db.Model(&models.Earning{}).Where("interview_room_id = ?", room.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestSubmitFeedback_SecondInterviewerOnCompletedRoom(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	room := e.schedule(t, "int-1", "int-2")

	_, _, err := e.feedback.Submit(ctx, room.Code, interviewer, goodFeedback())
	require.NoError(t, err)
	_, earning, err := e.feedback.Submit(ctx, room.Code, models.Identity{UserID: "int-2"}, goodFeedback())
	require.NoError(t, err)
	assert.Zero(t, earning.AmountCents, "no interviewer profile means zero rate")
}

func TestSubmitFeedback_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	room := e.schedule(t, "int-1")

	_, _, err := e.feedback.Submit(ctx, room.Code, candidate, goodFeedback())
	assert.True(t, utils.IsCode(err, utils.CodeForbidden))

	_, _, err = e.feedback.Submit(ctx, "missing", interviewer, goodFeedback())
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	bad := goodFeedback()
	bad.Scores.Technical = 11
	_, _, err = e.feedback.Submit(ctx, room.Code, interviewer, bad)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	bad = goodFeedback()
	bad.Rating = "stellar"
	_, _, err = e.feedback.Submit(ctx, room.Code, interviewer, bad)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = e.rooms.Cancel(ctx, room.Code, "", admin)
	require.NoError(t, err)
	_, _, err = e.feedback.Submit(ctx, room.Code, interviewer, goodFeedback())
	assert.True(t, utils.IsCode(err, utils.CodeInvalidState))

	var n int64
	require.NoError(t, e.db.Model(&models.Feedback{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEarningTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	testhelpers.SeedInterviewer(t, e.db, "int-1", 6000)
	room := e.schedule(t, "int-1")

	_, earning, err := e.feedback.Submit(ctx, room.Code, interviewer, goodFeedback())
	require.NoError(t, err)

	_, err = e.feedback.MarkPaid(ctx, earning.ID, admin)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidState), "pending cannot jump to paid")

	got, err := e.feedback.ConfirmEarning(ctx, earning.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.EarningConfirmed, got.Status)
	assert.NotNil(t, got.ConfirmedAt)

	_, err = e.feedback.ConfirmEarning(ctx, earning.ID, admin)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidState))

	got, err = e.feedback.MarkPaid(ctx, earning.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.EarningPaid, got.Status)
	assert.NotNil(t, got.PaidAt)

	_, err = e.feedback.MarkPaid(ctx, earning.ID, admin)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidState))

	_, err = e.feedback.ConfirmEarning(ctx, 999, admin)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	rows, err := e.feedback.ListEarnings(ctx, "int-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
