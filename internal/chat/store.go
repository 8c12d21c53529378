package chat

import (
	"sync"
	"time"
)

// TimestampLayout formats message timestamps as local hour:minute.
const TimestampLayout = "15:04"

// Store is an append-only conversation log plus the pending-reply count that
// drives the typing indicator.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	pending  int
	lastID   int64
	now      func() time.Time

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// NewStore returns an empty Store. now defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:  now,
		subs: make(map[int]chan struct{}),
	}
}

// Append adds a message at the end of the log.
func (s *Store) Append(sender Sender, text string) Message {
	s.mu.Lock()
	msg := s.appendLocked(sender, text)
	s.mu.Unlock()
	s.notify()
	return msg
}

// AppendUserTurn appends the user's message and then marks a reply as pending.
func (s *Store) AppendUserTurn(text string) Message {
	s.mu.Lock()
	msg := s.appendLocked(SenderUser, text)
	s.pending++
	s.mu.Unlock()
	s.notify()
	return msg
}

// AppendBotTurn appends a reply and then clears one pending mark.
func (s *Store) AppendBotTurn(text string) Message {
	s.mu.Lock()
	msg := s.appendLocked(SenderBot, text)
	if s.pending > 0 {
		s.pending--
	}
	s.mu.Unlock()
	s.notify()
	return msg
}

func (s *Store) appendLocked(sender Sender, text string) Message {
	now := s.now()
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	msg := Message{
		ID:        id,
		Sender:    sender,
		Text:      text,
		Timestamp: now.Local().Format(TimestampLayout),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages returns a copy of the log in insertion order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// IsTyping reports whether any reply is still pending.
func (s *Store) IsTyping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending > 0
}

// Snapshot returns the messages and typing flag read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return Snapshot{Messages: out, IsTyping: s.pending > 0}
}

// Subscribe returns a channel that receives a value after every change.
// Bursts of changes coalesce into one signal; readers should take a fresh
// Snapshot on each receive. The returned func unsubscribes.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
