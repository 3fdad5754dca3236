// Package event delivers in-process notifications without direct
// dependencies between publishers and subscribers.
package event

import (
	"log"
	"sync"
	"time"
)

type EventType int

const (
	AuthStateChanged EventType = iota
	FavouritesChanged
)

func (t EventType) String() string {
	switch t {
	case AuthStateChanged:
		return "auth-changed"
	case FavouritesChanged:
		return "favourites-changed"
	default:
		return "unknown"
	}
}

type Event struct {
	Type EventType
	Data any
}

// AuthChangeKind says which session transition produced an AuthStateChanged event.
type AuthChangeKind string

const (
	AuthLogin          AuthChangeKind = "login"
	AuthLogout         AuthChangeKind = "logout"
	AuthRegister       AuthChangeKind = "register"
	AuthProfileUpdated AuthChangeKind = "profile_updated"
)

// AuthChange is the payload of AuthStateChanged.
type AuthChange struct {
	Kind      AuthChangeKind
	UserID    uint
	Username  string
	IPAddress string
	UserAgent string
	At        time.Time
}

// FavouriteChange is the payload of FavouritesChanged.
type FavouriteChange struct {
	UserID uint
	MalID  int
	Added  bool
	Title  string
}

type EventHandler func(Event)

type subscription struct {
	id      uint64
	handler EventHandler
}

type EventManager struct {
	subscribers map[EventType][]subscription
	nextID      uint64
	mu          sync.RWMutex
}

func NewEventManager() *EventManager {
	return &EventManager{
		subscribers: make(map[EventType][]subscription),
	}
}

// Subscribe registers handler for eventType and returns a function that removes it.
func (em *EventManager) Subscribe(eventType EventType, handler EventHandler) func() {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.nextID++
	id := em.nextID
	em.subscribers[eventType] = append(em.subscribers[eventType], subscription{id: id, handler: handler})

	return func() {
		em.mu.Lock()
		defer em.mu.Unlock()
		subs := em.subscribers[eventType]
		for i, s := range subs {
			if s.id == id {
				em.subscribers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to every current subscriber before returning.
// Each handler runs exactly once per Publish call; a panicking handler
// does not prevent delivery to the others.
func (em *EventManager) Publish(event Event) {
	em.mu.RLock()
	subs := make([]subscription, len(em.subscribers[event.Type]))
	copy(subs, em.subscribers[event.Type])
	em.mu.RUnlock()

	for _, s := range subs {
		dispatch(s.handler, event)
	}
}

func dispatch(h EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in %s event handler: %v", event.Type, r)
		}
	}()
	h(event)
}

// SubscriberCount returns how many handlers are registered for eventType.
func (em *EventManager) SubscriberCount(eventType EventType) int {
	em.mu.RLock()
	defer em.mu.RUnlock()
	return len(em.subscribers[eventType])
}
