package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
)

// Inbound call frame types.
const (
	frameOffer        = "offer"
	frameAnswer       = "answer"
	frameICECandidate = "ice_candidate"
	frameMute         = "mute"
	frameUnmute       = "unmute"
	frameVideoToggle  = "video_toggle"
)

type signalTarget struct {
	TargetUserID string `json:"target_user_id"`
}

type signalData struct {
	FromUserID string          `json:"from_user_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type presenceData struct {
	UserID       string   `json:"user_id"`
	Participants []string `json:"participants"`
}

// Rooms relays WebRTC signaling between the sockets connected to each call.
// Each user holds at most one socket per call; a reconnect replaces the old one.
type Rooms struct {
	logger *slog.Logger

	mu    sync.RWMutex
	calls map[string]map[string]*client
}

func NewRooms(logger *slog.Logger) *Rooms {
	return &Rooms{
		logger: logger.With("component", "call_rooms"),
		calls:  make(map[string]map[string]*client),
	}
}

// Serve joins ws to the call room and relays frames until the socket closes.
func (r *Rooms) Serve(ctx context.Context, ws *websocket.Conn, callID, userID string) {
	c := newClient(ws, userID, "call")
	participants := r.join(callID, c)
	defer func() {
		if remaining, left := r.leave(callID, c); left {
			r.broadcast(callID, "", Frame{Type: FrameUserLeft, Data: presenceData{UserID: userID, Participants: remaining}})
		}
		c.close()
	}()

	r.broadcast(callID, userID, Frame{Type: FrameUserJoined, Data: presenceData{UserID: userID, Participants: participants}})
	c.send(Frame{Type: FrameConnected, Data: map[string]any{"call_id": callID, "participants": participants}})

	for {
		var in inbound
		if err := ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				r.logger.DebugContext(ctx, "call socket closed", "call_id", callID, "user_id", userID, "err", err)
			}
			return
		}
		r.handle(callID, c, in)
	}
}

func (r *Rooms) handle(callID string, c *client, in inbound) {
	switch in.Type {
	case frameOffer, frameAnswer, frameICECandidate:
		var target signalTarget
		if len(in.Data) > 0 {
			_ = json.Unmarshal(in.Data, &target)
		}
		out := Frame{Type: in.Type, Data: signalData{FromUserID: c.userID, Payload: in.Data}}
		if target.TargetUserID != "" {
			r.sendTo(callID, target.TargetUserID, out)
			return
		}
		r.broadcast(callID, c.userID, out)
	case frameMute, frameUnmute:
		r.broadcast(callID, c.userID, Frame{Type: in.Type, Data: map[string]string{"user_id": c.userID}})
	case frameVideoToggle:
		toggle := struct {
			VideoEnabled *bool `json:"video_enabled"`
		}{}
		if len(in.Data) > 0 {
			_ = json.Unmarshal(in.Data, &toggle)
		}
		enabled := true
		if toggle.VideoEnabled != nil {
			enabled = *toggle.VideoEnabled
		}
		r.broadcast(callID, c.userID, Frame{Type: frameVideoToggle, Data: map[string]any{"user_id": c.userID, "video_enabled": enabled}})
	case framePing:
		c.send(Frame{Type: FramePong})
	default:
		c.send(errorFrame("unknown_type", "unsupported frame type "+in.Type))
	}
}

// IsOnline reports whether userID currently has a socket in the call room.
func (r *Rooms) IsOnline(callID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.calls[callID][userID]
	return ok
}

// Participants returns the user IDs connected to the call room, sorted.
func (r *Rooms) Participants(callID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participantsLocked(callID)
}

// Disconnect closes userID's socket in the call room, if any.
func (r *Rooms) Disconnect(callID, userID string) {
	r.mu.RLock()
	c := r.calls[callID][userID]
	r.mu.RUnlock()
	if c != nil {
		c.close()
	}
}

// EndCall broadcasts call_ended to the room and closes every socket in it.
func (r *Rooms) EndCall(callID, endedBy string) {
	r.mu.Lock()
	room := r.calls[callID]
	delete(r.calls, callID)
	r.mu.Unlock()

	f := Frame{Type: FrameCallEnded, Data: map[string]string{"call_id": callID, "ended_by": endedBy}}
	for _, c := range room {
		c.send(f)
		c.close()
	}
}

func (r *Rooms) join(callID string, c *client) []string {
	r.mu.Lock()
	room, ok := r.calls[callID]
	if !ok {
		room = make(map[string]*client)
		r.calls[callID] = room
	}
	prev := room[c.userID]
	room[c.userID] = c
	participants := r.participantsLocked(callID)
	r.mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return participants
}

// leave removes c if it is still the user's current socket and returns the remaining participants.
func (r *Rooms) leave(callID string, c *client) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.calls[callID]
	if !ok || room[c.userID] != c {
		return nil, false
	}
	delete(room, c.userID)
	if len(room) == 0 {
		delete(r.calls, callID)
	}
	return r.participantsLocked(callID), true
}

func (r *Rooms) participantsLocked(callID string) []string {
	ids := make([]string, 0, len(r.calls[callID]))
	for id := range r.calls[callID] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *Rooms) sendTo(callID, userID string, f Frame) {
	r.mu.RLock()
	c := r.calls[callID][userID]
	r.mu.RUnlock()
	if c != nil {
		c.send(f)
	}
}

// broadcast writes f to every socket in the room except exclude.
func (r *Rooms) broadcast(callID, exclude string, f Frame) {
	r.mu.RLock()
	targets := make([]*client, 0, len(r.calls[callID]))
	for id, c := range r.calls[callID] {
		if id != exclude {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range targets {
		c.send(f)
	}
}
