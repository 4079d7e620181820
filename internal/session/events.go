package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agenttable/agenttable/internal/deck"
	"github.com/agenttable/agenttable/internal/game"
)

// EventType identifies a coordinator event.
type EventType string

const (
	EventTypeHandStarted    EventType = "hand_started"
	EventTypeActionTaken    EventType = "action_taken"
	EventTypeStageChanged   EventType = "stage_changed"
	EventTypeWinnerDeclared EventType = "winner_declared"
	EventTypeHandEnded      EventType = "hand_ended"
	EventTypeGameEnded      EventType = "game_ended"
)

func (et EventType) String() string { return string(et) }

// Event is anything the coordinator publishes about a game.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
}

// HandStartedEvent is published when a new hand is dealt.
type HandStartedEvent struct {
	GameID     string
	HandID     string
	HandNumber int
	SmallBlind int
	BigBlind   int
	Pot        int
	timestamp  time.Time
}

func (e HandStartedEvent) EventType() EventType { return EventTypeHandStarted }
func (e HandStartedEvent) Timestamp() time.Time { return e.timestamp }

// ActionTakenEvent is published for every accepted action.
type ActionTakenEvent struct {
	GameID     string
	HandNumber int
	ActorID    string
	Action     game.ActionType
	Amount     int
	PotAfter   int
	timestamp  time.Time
}

func (e ActionTakenEvent) EventType() EventType { return EventTypeActionTaken }
func (e ActionTakenEvent) Timestamp() time.Time { return e.timestamp }

// StageChangedEvent is published when the betting round advances.
type StageChangedEvent struct {
	GameID    string
	Stage     game.Stage
	Community []deck.Card
	timestamp time.Time
}

func (e StageChangedEvent) EventType() EventType { return EventTypeStageChanged }
func (e StageChangedEvent) Timestamp() time.Time { return e.timestamp }

// WinnerDeclaredEvent is published once per winning seat when a hand
// resolves, whether by showdown or fold-out.
type WinnerDeclaredEvent struct {
	GameID    string
	HandID    string
	PlayerID  string
	Amount    int
	HandDesc  string
	timestamp time.Time
}

func (e WinnerDeclaredEvent) EventType() EventType { return EventTypeWinnerDeclared }
func (e WinnerDeclaredEvent) Timestamp() time.Time { return e.timestamp }

// HandEndedEvent is published after settlement, carrying the final
// payouts keyed by player ID.
type HandEndedEvent struct {
	GameID    string
	HandID    string
	Winners   []string
	Payouts   map[string]int
	FoldOut   bool
	timestamp time.Time
}

func (e HandEndedEvent) EventType() EventType { return EventTypeHandEnded }
func (e HandEndedEvent) Timestamp() time.Time { return e.timestamp }

// GameEndedEvent is published when a game is torn down.
type GameEndedEvent struct {
	GameID    string
	Stacks    map[string]int
	timestamp time.Time
}

func (e GameEndedEvent) EventType() EventType { return EventTypeGameEnded }
func (e GameEndedEvent) Timestamp() time.Time { return e.timestamp }

// Subscriber receives coordinator events.
type Subscriber interface {
	OnEvent(event Event)
}

// Bus fans events out to subscribers in subscription order. A subscriber
// that panics is logged and skipped; it never takes the game down.
type Bus struct {
	logger      zerolog.Logger
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewBus creates an empty event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger.With().Str("component", "eventbus").Logger()}
}

// Subscribe adds a subscriber.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Unsubscribe removes a previously added subscriber.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subscribers {
		if s == sub {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			break
		}
	}
}

// Publish delivers an event to every subscriber synchronously.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

func (b *Bus) deliver(sub Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", event.EventType().String()).
				Interface("panic", r).
				Msg("subscriber panicked")
		}
	}()
	sub.OnEvent(event)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(Event)

func (f SubscriberFunc) OnEvent(event Event) { f(event) }
