package engine

import (
	"fmt"
	"sync"
)

// EventType names an engine event.
type EventType string

const (
	EventMove             EventType = "move"
	EventBlockAttempt     EventType = "block_attempt"
	EventBlock            EventType = "block"
	EventKnockdown        EventType = "knockdown"
	EventPush             EventType = "push"
	EventBallPickup       EventType = "ball_pickup"
	EventBallPickupFailed EventType = "ball_pickup_failed"
	EventBallDropped      EventType = "ball_dropped"
	EventDukeCheck        EventType = "duke_check"
	EventInjury           EventType = "injury"
	EventTouchdown        EventType = "touchdown"
	EventFieldGoal        EventType = "field_goal"
	EventFieldGoalMiss    EventType = "field_goal_miss"
	EventStandUp          EventType = "stand_up"
	EventPlayStart        EventType = "play_start"
	EventPlayEnd          EventType = "play_end"
	EventTurnStart        EventType = "turn_start"
	EventTurnEnd          EventType = "turn_end"
	EventGameEnd          EventType = "game_end"
)

// Payload is a flat field map: ids, names, positions, rolls and result tags.
type Payload map[string]any

// Event is one published occurrence. Seq increases by one per event within a
// bus.
type Event struct {
	Seq     int       `json:"seq"`
	Type    EventType `json:"type"`
	Play    int       `json:"play"`
	Turn    int       `json:"turn"`
	Payload Payload   `json:"payload,omitempty"`
}

// Emitter accepts events. Implementations must not call back into the
// simulation.
type Emitter interface {
	Emit(t EventType, payload Payload)
}

// Subscriber receives every event published on a Bus.
type Subscriber func(Event)

// Bus stamps events with a sequence number and the current play and turn,
// keeps them in order, and fans them out to subscribers synchronously.
type Bus struct {
	mu          sync.Mutex
	seq         int
	play, turn  int
	history     []Event
	keep        bool
	subscribers []Subscriber
}

// NewBus returns a bus that keeps its full history.
func NewBus() *Bus {
	return &Bus{keep: true}
}

// NewDiscardBus returns a bus that keeps no history.
func NewDiscardBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn for every later event.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, fn)
}

// SetClock updates the play and turn stamped on later events.
func (b *Bus) SetClock(play, turn int) {
	b.mu.Lock()
	b.play, b.turn = play, turn
	b.mu.Unlock()
}

// Emit publishes one event.
func (b *Bus) Emit(t EventType, payload Payload) {
	b.mu.Lock()
	b.seq++
	ev := Event{Seq: b.seq, Type: t, Play: b.play, Turn: b.turn, Payload: payload}
	if b.keep {
		b.history = append(b.history, ev)
	}
	subs := b.subscribers
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// History returns a copy of every kept event.
func (b *Bus) History() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.history))
	copy(out, b.history)
	return out
}

// Len returns the number of events published so far.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Count returns how many kept events have type t.
func (b *Bus) Count(t EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ev := range b.history {
		if ev.Type == t {
			n++
		}
	}
	return n
}

func (p Payload) str(key string) string {
	v, ok := p[key]
	if !ok {
		return "?"
	}
	// Positions decoded from JSON arrive as maps.
	if m, ok := v.(map[string]any); ok {
		return fmt.Sprintf("(%v,%v)", m["x"], m["y"])
	}
	return fmt.Sprint(v)
}

// Describe renders the event as one line of text.
func (e Event) Describe() string {
	p := e.Payload
	switch e.Type {
	case EventMove:
		return fmt.Sprintf("%s moved %s -> %s", p.str("agent_name"), p.str("from"), p.str("to"))
	case EventBlockAttempt:
		return fmt.Sprintf("%s tries to block %s", p.str("attacker_name"), p.str("defender_name"))
	case EventBlock:
		return fmt.Sprintf("%s blocked %s: %s (margin %s)", p.str("attacker_name"), p.str("defender_name"), p.str("result"), p.str("margin"))
	case EventKnockdown:
		return fmt.Sprintf("%s is knocked down", p.str("agent_name"))
	case EventPush:
		return fmt.Sprintf("%s pushed to %s", p.str("agent_name"), p.str("to"))
	case EventBallPickup:
		return fmt.Sprintf("%s picks up the ball at %s", p.str("agent_name"), p.str("at"))
	case EventBallPickupFailed:
		return fmt.Sprintf("%s fumbles the pickup, ball scatters to %s", p.str("agent_name"), p.str("to"))
	case EventBallDropped:
		return fmt.Sprintf("%s drops the ball, it scatters to %s", p.str("agent_name"), p.str("to"))
	case EventDukeCheck:
		return fmt.Sprintf("%s DUKE check at %s: chance %s, %s", p.str("agent_name"), p.str("at"), p.str("chance"), p.str("result"))
	case EventInjury:
		return fmt.Sprintf("%s suffers a %s injury", p.str("agent_name"), p.str("injury"))
	case EventTouchdown:
		return fmt.Sprintf("TOUCHDOWN %s! %s scores %s", p.str("team_name"), p.str("agent_name"), p.str("points"))
	case EventFieldGoal:
		return fmt.Sprintf("FIELD GOAL %s! %s scores %s from %s", p.str("team_name"), p.str("agent_name"), p.str("points"), p.str("distance"))
	case EventFieldGoalMiss:
		return fmt.Sprintf("%s misses a field goal from %s", p.str("agent_name"), p.str("distance"))
	case EventStandUp:
		return fmt.Sprintf("%s stands up", p.str("agent_name"))
	case EventPlayStart:
		return fmt.Sprintf("play %d starts, %s on offense, %s carries", e.Play, p.str("offense"), p.str("carrier_name"))
	case EventPlayEnd:
		return fmt.Sprintf("play %d ends after %s turns: %s", e.Play, p.str("turns"), p.str("reason"))
	case EventTurnStart:
		return fmt.Sprintf("turn %d of play %d", e.Turn, e.Play)
	case EventTurnEnd:
		return fmt.Sprintf("end of turn %d", e.Turn)
	case EventGameEnd:
		return fmt.Sprintf("game over: %s %s - %s %s, winner %s", p.str("home"), p.str("home_score"), p.str("away_score"), p.str("away"), p.str("winner"))
	}
	return string(e.Type)
}
