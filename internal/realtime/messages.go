package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client event type names.
const (
	EventJoinInterview   = "join_interview"
	EventLeaveInterview  = "leave_interview"
	EventOffer           = "offer"
	EventAnswer          = "answer"
	EventICECandidate    = "ice_candidate"
	EventChatMessage     = "chat_message"
	EventCodeChange      = "code_change"
	EventRequestSnapshot = "request_snapshot"
)

// ClientEvent is the closed set of frames a client may send. Only types in
// this package implement it.
type ClientEvent interface {
	clientEvent()
}

type JoinInterview struct {
	Room string
	// ClaimedRole is informational. The server uses the participant record.
	ClaimedRole string
}

// LeaveInterview leaves the current room. Room is optional.
type LeaveInterview struct {
	Room string
}

type Signal struct {
	Target  string
	Payload json.RawMessage
}

type Offer struct{ Signal }

type Answer struct{ Signal }

type ICECandidate struct{ Signal }

type ChatMessage struct {
	Text string
}

type CodeChange struct {
	Content  string
	Language string
}

type RequestSnapshot struct{}

func (JoinInterview) clientEvent()   {}
func (LeaveInterview) clientEvent()  {}
func (Offer) clientEvent()           {}
func (Answer) clientEvent()          {}
func (ICECandidate) clientEvent()    {}
func (ChatMessage) clientEvent()     {}
func (CodeChange) clientEvent()      {}
func (RequestSnapshot) clientEvent() {}

var (
	ErrMalformed    = errors.New("malformed frame")
	ErrUnknownEvent = errors.New("unknown event type")
)

type inbound struct {
	Type     string          `json:"type"`
	Room     string          `json:"room"`
	Role     string          `json:"role"`
	Target   string          `json:"target"`
	Payload  json.RawMessage `json:"payload"`
	Text     *string         `json:"text"`
	Content  *string         `json:"content"`
	Language string          `json:"language"`
}

// Decode parses one client frame. Every field is optional on the wire;
// only join_interview requires one (room) to be meaningful. Signal, chat
// and code frames with missing fields decode fine and are dropped later.
func Decode(data []byte) (ClientEvent, error) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch in.Type {
	case EventJoinInterview:
		if in.Room == "" {
			return nil, fmt.Errorf("%w: room is required", ErrMalformed)
		}
		return JoinInterview{Room: in.Room, ClaimedRole: in.Role}, nil
	case EventLeaveInterview:
		return LeaveInterview{Room: in.Room}, nil
	case EventOffer:
		return Offer{Signal{Target: in.Target, Payload: in.Payload}}, nil
	case EventAnswer:
		return Answer{Signal{Target: in.Target, Payload: in.Payload}}, nil
	case EventICECandidate:
		return ICECandidate{Signal{Target: in.Target, Payload: in.Payload}}, nil
	case EventChatMessage:
		if in.Text == nil {
			return ChatMessage{}, nil
		}
		return ChatMessage{Text: *in.Text}, nil
	case EventCodeChange:
		if in.Content == nil {
			return nil, fmt.Errorf("%w: content is required", ErrMalformed)
		}
		return CodeChange{Content: *in.Content, Language: in.Language}, nil
	case EventRequestSnapshot:
		return RequestSnapshot{}, nil
	case "":
		return nil, fmt.Errorf("%w: type is required", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, in.Type)
	}
}
