package infrastructure

import (
	"sync"
	"time"
)

// callbackSession tracks button clicks for one Telegram chat
type callbackSession struct {
	mu           sync.Mutex
	isProcessing bool
	lastClick    time.Time
}

// SessionManager debounces inline keyboard clicks per chat. It holds no
// conversation state; a chat's entry only says whether a click is in flight.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[int64]*callbackSession
	window   time.Duration
	now      func() time.Time
}

func NewSessionManager(window time.Duration) *SessionManager {
	return &SessionManager{
		sessions: make(map[int64]*callbackSession),
		window:   window,
		now:      time.Now,
	}
}

func (sm *SessionManager) session(chatID int64) *callbackSession {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[chatID]
	if !ok {
		s = &callbackSession{}
		sm.sessions[chatID] = s
	}
	return s
}

// TryAcquire marks a click for chatID as in flight. It returns false when a
// previous click is still processing or came within the debounce window.
func (sm *SessionManager) TryAcquire(chatID int64) bool {
	s := sm.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := sm.now()
	if s.isProcessing || now.Sub(s.lastClick) < sm.window {
		return false
	}
	s.isProcessing = true
	s.lastClick = now
	return true
}

// Release marks the chat's in-flight click as done
func (sm *SessionManager) Release(chatID int64) {
	s := sm.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isProcessing = false
}
