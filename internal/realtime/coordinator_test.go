package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hireloop/interviewroom/internal/models"
	"github.com/hireloop/interviewroom/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interviewRoom(h *harness) {
	h.rooms.add("R", models.RoomScheduled, map[string]models.ParticipantRole{
		"cand": models.RoleCandidate,
		"intv": models.RoleInterviewer,
		"obs":  models.RoleObserver,
	})
	h.rooms.add("S", models.RoomActive, map[string]models.ParticipantRole{
		"other": models.RoleCandidate,
		"intv":  models.RoleInterviewer,
	})
}

func TestJoinExchangesParticipants(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")

	h.co.Handle(ctx, cand, JoinInterview{Room: "R", ClaimedRole: "interviewer"})
	frames := candOut.drain(t)
	require.Equal(t, []string{FrameJoined, FrameParticipants}, types(frames))
	assert.Equal(t, "candidate", frames[0].Role, "role comes from the participant record")
	assert.Equal(t, "active", frames[0].Status)
	assert.Empty(t, frames[1].Participants)

	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	frames = intvOut.drain(t)
	require.Equal(t, []string{FrameJoined, FrameParticipants}, types(frames))
	require.Len(t, frames[1].Participants, 1)
	assert.Equal(t, "c-cand", frames[1].Participants[0].ConnectionID)
	assert.Equal(t, "candidate", frames[1].Participants[0].Role)

	frames = candOut.drain(t)
	require.Equal(t, []string{FrameUserJoined}, types(frames))
	assert.Equal(t, "c-intv", frames[0].ConnectionID)
	assert.Equal(t, "intv-name", frames[0].DisplayName)
	assert.Equal(t, "interviewer", frames[0].Role)

	require.NoError(t, h.tracker.Check())
}

func TestParticipantsFrameAlwaysCarriesList(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	cand, out := h.connect("c1", "cand")
	h.co.Handle(context.Background(), cand, JoinInterview{Room: "R"})

	out.mu.Lock()
	raw := string(out.frames[1])
	out.mu.Unlock()
	assert.JSONEq(t, `{"type":"participants","room":"R","participants":[]}`, raw)
}

func TestJoinRejected(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	stranger, out := h.connect("c-x", "stranger")
	h.co.Handle(ctx, stranger, JoinInterview{Room: "R"})
	frames := out.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameError, frames[0].Type)
	assert.Equal(t, utils.CodeForbidden, frames[0].Code)

	h.co.Handle(ctx, stranger, JoinInterview{Room: "missing"})
	frames = out.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, utils.CodeNotFound, frames[0].Code)

	_, ok := stranger.Room()
	assert.False(t, ok)
	rooms, conns := h.tracker.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, conns)
}

func TestOfferRelayedWithSender(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")
	obs, obsOut := h.connect("c-obs", "obs")
	for _, s := range []*Session{cand, intv, obs} {
		h.co.Handle(ctx, s, JoinInterview{Room: "R"})
	}
	candOut.drain(t)
	intvOut.drain(t)
	obsOut.drain(t)

	payload := json.RawMessage(`{"sdp":"v=0","type":"offer"}`)
	h.co.Handle(ctx, intv, Offer{Signal{Target: "c-cand", Payload: payload}})

	frames := candOut.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, EventOffer, frames[0].Type)
	assert.Equal(t, "c-intv", frames[0].From)
	assert.JSONEq(t, string(payload), string(frames[0].Payload))

	assert.Empty(t, intvOut.drain(t))
	assert.Empty(t, obsOut.drain(t))

	h.co.Handle(ctx, cand, Answer{Signal{Target: "c-intv", Payload: json.RawMessage(`{"sdp":"a"}`)}})
	h.co.Handle(ctx, cand, ICECandidate{Signal{Target: "c-intv", Payload: json.RawMessage(`{"candidate":"x"}`)}})
	assert.Equal(t, []string{EventAnswer, EventICECandidate}, types(intvOut.drain(t)))
}

func TestRelayDropsSilently(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	other, otherOut := h.connect("c-other", "other")
	lonely, lonelyOut := h.connect("c-lonely", "cand")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, other, JoinInterview{Room: "S"})
	candOut.drain(t)
	otherOut.drain(t)

	payload := json.RawMessage(`{"sdp":"x"}`)

	// Target lives in another room.
	err := h.co.relay.Forward(cand, EventOffer, Signal{Target: "c-other", Payload: payload})
	assert.ErrorIs(t, err, ErrRelayMiss)
	// Target never existed.
	err = h.co.relay.Forward(cand, EventOffer, Signal{Target: "ghost", Payload: payload})
	assert.ErrorIs(t, err, ErrRelayMiss)
	// Missing target and missing payload.
	assert.ErrorIs(t, h.co.relay.Forward(cand, EventOffer, Signal{Payload: payload}), ErrRelayMiss)
	assert.ErrorIs(t, h.co.relay.Forward(cand, EventOffer, Signal{Target: "c-cand"}), ErrRelayMiss)
	// Sender outside any room.
	err = h.co.relay.Forward(lonely, EventOffer, Signal{Target: "c-cand", Payload: payload})
	assert.ErrorIs(t, err, ErrRelayMiss)

	// None of these reach a client, the sender included.
	h.co.Handle(ctx, cand, Offer{Signal{Target: "c-other", Payload: payload}})
	assert.Empty(t, candOut.drain(t))
	assert.Empty(t, otherOut.drain(t))
	assert.Empty(t, lonelyOut.drain(t))
}

func TestRelayBackpressureIsAMiss(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, _ := h.connect("c-intv", "intv")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	candOut.drain(t)

	candOut.mu.Lock()
	candOut.full = true
	candOut.mu.Unlock()

	err := h.co.relay.Forward(intv, EventOffer, Signal{Target: "c-cand", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrRelayMiss)
}

func TestChatNeverEchoes(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	candOut.drain(t)
	intvOut.drain(t)

	h.co.Handle(ctx, intv, ChatMessage{Text: "hello"})

	assert.Empty(t, intvOut.drain(t))
	frames := candOut.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, EventChatMessage, frames[0].Type)
	assert.Equal(t, "hello", frames[0].Text)
	assert.Equal(t, "intv-name", frames[0].DisplayName)
	assert.NotEmpty(t, frames[0].Timestamp)

	require.Len(t, h.transcript.lines, 1)
	assert.Equal(t, "R", h.transcript.lines[0].RoomCode)

	h.co.Handle(ctx, intv, ChatMessage{})
	assert.Empty(t, candOut.drain(t))
}

func TestCodeChangePersistsAndBroadcasts(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	candOut.drain(t)
	intvOut.drain(t)

	h.co.Handle(ctx, cand, CodeChange{Content: "fmt.Println(1)", Language: "go"})

	assert.Empty(t, candOut.drain(t))
	frames := intvOut.drain(t)
	require.Len(t, frames, 1)
	require.NotNil(t, frames[0].Content)
	assert.Equal(t, "fmt.Println(1)", *frames[0].Content)
	assert.Equal(t, "go", frames[0].Language)

	snap, err := h.snapshots.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "fmt.Println(1)", snap.Content)
	assert.Equal(t, "cand", snap.UpdatedBy)

	late, lateOut := h.connect("c-obs", "obs")
	h.co.Handle(ctx, late, JoinInterview{Room: "R"})
	lateOut.drain(t)
	h.co.Handle(ctx, late, RequestSnapshot{})
	frames = lateOut.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, FrameCodeSnapshot, frames[0].Type)
	assert.Equal(t, "fmt.Println(1)", *frames[0].Content)
}

func TestCodeChangeDefaultsLanguageAndReportsWriteFailure(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	candOut.drain(t)
	intvOut.drain(t)

	h.co.Handle(ctx, cand, CodeChange{Content: ""})
	frames := intvOut.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, models.DefaultLanguage, frames[0].Language)
	require.NotNil(t, frames[0].Content)
	assert.Equal(t, "", *frames[0].Content)

	h.snapshots.fail = utils.E(utils.CodeUnavailable, "Test.Save", "store down", errors.New("down"))
	h.co.Handle(ctx, cand, CodeChange{Content: "x"})
	assert.Empty(t, intvOut.drain(t))
	frames = candOut.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, utils.CodeUnavailable, frames[0].Code)
}

func TestRequestSnapshotBeforeJoin(t *testing.T) {
	h := newHarness()
	s, out := h.connect("c1", "cand")
	h.co.Handle(context.Background(), s, RequestSnapshot{})
	frames := out.drain(t)
	require.Len(t, frames, 1)
	assert.Equal(t, utils.CodeInvalidState, frames[0].Code)
}

func TestDisconnectCleanupAndRejoin(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	candOut.drain(t)
	intvOut.drain(t)

	h.co.Disconnect(ctx, cand)

	frames := intvOut.drain(t)
	require.Equal(t, []string{FrameUserLeft}, types(frames))
	assert.Equal(t, "c-cand", frames[0].ConnectionID)
	assert.Equal(t, 1, h.rooms.leaveCount())
	assert.Equal(t, models.RoomActive, h.rooms.rooms["R"].Status)

	// Cleanup a second time changes nothing.
	h.co.Disconnect(ctx, cand)
	assert.Empty(t, intvOut.drain(t))
	assert.Equal(t, 1, h.rooms.leaveCount())
	require.NoError(t, h.tracker.Check())

	back, backOut := h.connect("c-cand-2", "cand")
	h.co.Handle(ctx, back, JoinInterview{Room: "R"})
	frames = backOut.drain(t)
	require.Equal(t, []string{FrameJoined, FrameParticipants}, types(frames))
	require.Len(t, frames[1].Participants, 1)
	assert.Equal(t, "c-intv", frames[1].Participants[0].ConnectionID)
}

func TestDisconnectBeforeJoin(t *testing.T) {
	h := newHarness()
	s, _ := h.connect("c1", "cand")
	h.co.Disconnect(context.Background(), s)
	assert.Zero(t, h.rooms.leaveCount())
}

func TestLeaveEvent(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	candOut.drain(t)

	h.co.Handle(ctx, cand, LeaveInterview{Room: "S"})
	assert.Empty(t, candOut.drain(t), "leave for another room is ignored")

	h.co.Handle(ctx, cand, LeaveInterview{})
	assert.Equal(t, []string{FrameLeft}, types(candOut.drain(t)))
	_, ok := cand.Room()
	assert.False(t, ok)

	h.co.Handle(ctx, cand, LeaveInterview{})
	assert.Empty(t, candOut.drain(t))
}

func TestJoinSecondRoomLeavesFirst(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	cand, candOut := h.connect("c-cand", "cand")
	intv, intvOut := h.connect("c-intv", "intv")
	h.co.Handle(ctx, cand, JoinInterview{Room: "R"})
	h.co.Handle(ctx, intv, JoinInterview{Room: "R"})
	candOut.drain(t)
	intvOut.drain(t)

	h.co.Handle(ctx, intv, JoinInterview{Room: "S"})

	assert.Equal(t, []string{FrameUserLeft}, types(candOut.drain(t)))
	code, ok := intv.Room()
	require.True(t, ok)
	assert.Equal(t, "S", code)
	require.NoError(t, h.tracker.Check())
}

func TestSecondTabKeepsParticipantActive(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	tab1, _ := h.connect("tab-1", "intv")
	tab2, _ := h.connect("tab-2", "intv")
	h.co.Handle(ctx, tab1, JoinInterview{Room: "R"})
	h.co.Handle(ctx, tab2, JoinInterview{Room: "R"})

	h.co.Disconnect(ctx, tab1)
	assert.Zero(t, h.rooms.leaveCount())
	h.co.Disconnect(ctx, tab2)
	assert.Equal(t, 1, h.rooms.leaveCount())
}

func TestClosingTabWaitsForJoiningTab(t *testing.T) {
	h := newHarness()
	interviewRoom(h)
	ctx := context.Background()

	tab1, _ := h.connect("tab-1", "intv")
	tab2, _ := h.connect("tab-2", "intv")
	h.co.Handle(ctx, tab1, JoinInterview{Room: "R"})

	authorized := make(chan struct{})
	release := make(chan struct{})
	h.rooms.mu.Lock()
	h.rooms.afterAuthorize = func() {
		close(authorized)
		<-release
	}
	h.rooms.mu.Unlock()

	joined := make(chan struct{})
	go func() {
		h.co.Handle(ctx, tab2, JoinInterview{Room: "R"})
		close(joined)
	}()
	<-authorized

	left := make(chan struct{})
	go func() {
		h.co.Disconnect(ctx, tab1)
		close(left)
	}()

	assert.Never(t, func() bool {
		select {
		case <-left:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond, "leave bookkeeping must wait for the join in flight")

	close(release)
	<-joined
	<-left

	assert.True(t, h.tracker.IsOnline("R", "intv"))
	assert.Zero(t, h.rooms.leaveCount(), "the joining tab keeps the participant active")
}

func TestHandleFrameReportsMalformed(t *testing.T) {
	h := newHarness()
	s, out := h.connect("c1", "cand")

	h.co.HandleFrame(context.Background(), s, []byte(`{not json`))
	h.co.HandleFrame(context.Background(), s, []byte(`{"type":"dance"}`))

	frames := out.drain(t)
	require.Len(t, frames, 2)
	for _, f := range frames {
		assert.Equal(t, FrameError, f.Type)
		assert.Equal(t, utils.CodeInvalidArgument, f.Code)
	}
}
