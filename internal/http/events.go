package http

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/animedex/internal/auth"
	"github.com/mrlokans/animedex/internal/event"
)

const (
	sseBufferSize   = 8
	sseKeepAlive    = 25 * time.Second
	sseRetryMillis  = 3000
	sseEventPing    = "ping"
	sseEventChanged = "auth-changed"
)

// streamMessage is one server-sent event.
type streamMessage struct {
	Name string
	Data any
}

type streamClient struct {
	userID uint
	ch     chan streamMessage
}

// EventStream forwards bus notifications to open browser tabs as
// server-sent events. Auth changes go to every tab, which then refetches
// its own navigation; favourite changes only go to the owner's tabs.
type EventStream struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
	unsub   []func()
}

// NewEventStream subscribes to the bus. Close releases the subscriptions
// and ends every open stream.
func NewEventStream(em *event.EventManager) *EventStream {
	s := &EventStream{clients: make(map[*streamClient]struct{})}
	if em == nil {
		return s
	}

	s.unsub = append(s.unsub,
		em.Subscribe(event.AuthStateChanged, func(e event.Event) {
			change, _ := e.Data.(event.AuthChange)
			s.broadcast(streamMessage{
				Name: sseEventChanged,
				Data: gin.H{"kind": change.Kind},
			}, nil)
		}),
		em.Subscribe(event.FavouritesChanged, func(e event.Event) {
			change, ok := e.Data.(event.FavouriteChange)
			if !ok {
				return
			}
			s.broadcast(streamMessage{
				Name: event.FavouritesChanged.String(),
				Data: gin.H{"id": change.MalID, "favourite": change.Added},
			}, func(c *streamClient) bool { return c.userID == change.UserID })
		}),
	)
	return s
}

// Handler streams events until the client disconnects.
// GET /events
func (s *EventStream) Handler(c *gin.Context) {
	client := &streamClient{
		userID: auth.GetUserID(c),
		ch:     make(chan streamMessage, sseBufferSize),
	}
	if !s.add(client) {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer s.remove(client)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = c.Writer.WriteString("retry: " + strconv.Itoa(sseRetryMillis) + "\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-client.ch:
			if !ok {
				return false
			}
			c.SSEvent(msg.Name, msg.Data)
			return true
		case <-ticker.C:
			c.SSEvent(sseEventPing, time.Now().Unix())
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// ClientCount returns the number of open streams.
func (s *EventStream) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close unsubscribes from the bus and ends all streams.
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, unsub := range s.unsub {
		unsub()
	}
	for c := range s.clients {
		close(c.ch)
		delete(s.clients, c)
	}
}

func (s *EventStream) add(c *streamClient) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *EventStream) remove(c *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.ch)
	}
}

// broadcast queues msg for matching clients. A client whose buffer is full
// misses the message rather than blocking the publisher.
func (s *EventStream) broadcast(msg streamMessage, match func(*streamClient) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if match != nil && !match(c) {
			continue
		}
		select {
		case c.ch <- msg:
		default:
			log.Printf("Event stream: dropped %s for a slow client", msg.Name)
		}
	}
}
