package websocket

import "log"

// subscription ties a session to a conversation room.
type subscription struct {
	session        *Session
	conversationID uint
}

// publication is a payload bound for every current subscriber of a conversation.
type publication struct {
	conversationID uint
	payload        []byte
}

// Hub maintains the registry of active sessions and which conversation each
// one is subscribed to, and fans published payloads out to subscribers.
//
// All state is owned by the Run loop and mutated only through the channels
// below, so subscribe/unsubscribe/publish are safe to call concurrently.
// Because one goroutine drains publish in order, delivery order per
// conversation equals publish order.
type Hub struct {
	// rooms maps a conversation id to its currently subscribed sessions.
	rooms map[uint]map[*Session]bool

	// memberships is the reverse index, used to clean up on disconnect.
	memberships map[*Session]map[uint]bool

	register   chan *Session
	unregister chan *Session
	join       chan subscription
	leave      chan subscription
	publish    chan publication
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[uint]map[*Session]bool),
		memberships: make(map[*Session]map[uint]bool),
		register:    make(chan *Session),
		unregister:  make(chan *Session),
		join:        make(chan subscription),
		leave:       make(chan subscription),
		publish:     make(chan publication, 256),
	}
}

// Register announces a newly connected session to the hub.
func (h *Hub) Register(s *Session) {
	h.register <- s
}

// Unregister removes a session and all its subscriptions. Implied by
// disconnection; safe to call for an already removed session.
func (h *Hub) Unregister(s *Session) {
	h.unregister <- s
}

// Subscribe registers the session's interest in a conversation. Idempotent.
// Authorization happens at the edge before this is called.
func (h *Hub) Subscribe(s *Session, conversationID uint) {
	h.join <- subscription{session: s, conversationID: conversationID}
}

// Unsubscribe drops the session's interest in a conversation. Idempotent.
func (h *Hub) Unsubscribe(s *Session, conversationID uint) {
	h.leave <- subscription{session: s, conversationID: conversationID}
}

// Publish delivers the payload to every session subscribed to the
// conversation at this moment. Non-blocking: if the hub's queue is full the
// payload is dropped and subscribers reconcile via a full fetch.
func (h *Hub) Publish(conversationID uint, payload []byte) {
	select {
	case h.publish <- publication{conversationID: conversationID, payload: payload}:
	default:
		log.Printf("Warning: hub publish queue is full, dropping payload for conversation %d", conversationID)
	}
}

// Run starts the hub's event loop. It must run in its own goroutine before
// any session connects.
func (h *Hub) Run() {
	for {
		select {
		case session := <-h.register:
			if _, ok := h.memberships[session]; !ok {
				h.memberships[session] = make(map[uint]bool)
			}

		case session := <-h.unregister:
			h.dropSession(session)

		case sub := <-h.join:
			rooms, ok := h.memberships[sub.session]
			if !ok {
				// Session already unregistered; ignore the late join.
				continue
			}
			if h.rooms[sub.conversationID] == nil {
				h.rooms[sub.conversationID] = make(map[*Session]bool)
			}
			h.rooms[sub.conversationID][sub.session] = true
			rooms[sub.conversationID] = true

		case sub := <-h.leave:
			if sessions, ok := h.rooms[sub.conversationID]; ok {
				delete(sessions, sub.session)
				if len(sessions) == 0 {
					delete(h.rooms, sub.conversationID)
				}
			}
			if rooms, ok := h.memberships[sub.session]; ok {
				delete(rooms, sub.conversationID)
			}

		case pub := <-h.publish:
			for session := range h.rooms[pub.conversationID] {
				select {
				case session.send <- pub.payload:
				default:
					// The session's buffer is full: it is slow or gone.
					// Drop it rather than stall delivery to the others.
					log.Printf("Session for user %d is not keeping up, dropping it from the hub", session.UserID)
					h.dropSession(session)
				}
			}
		}
	}
}

// dropSession removes the session from every room and closes its send
// channel. No-op if the session was already dropped.
func (h *Hub) dropSession(session *Session) {
	rooms, ok := h.memberships[session]
	if !ok {
		return
	}
	for conversationID := range rooms {
		if sessions, ok := h.rooms[conversationID]; ok {
			delete(sessions, session)
			if len(sessions) == 0 {
				delete(h.rooms, conversationID)
			}
		}
	}
	delete(h.memberships, session)
	close(session.send)
}
