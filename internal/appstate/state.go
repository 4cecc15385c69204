// Package appstate holds the app-wide mutable flags the presentation layer
// renders. The mutation surface is deliberately narrow: SetAuthState and
// Notify, nothing else.
package appstate

import "sync"

// AuthState is the three-valued session state.
type AuthState int

const (
	// AuthUnknown is the only legal initial value. It is left once, at
	// startup, and never re-entered.
	AuthUnknown AuthState = iota
	Authenticated
	Unauthenticated
)

func (s AuthState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// NotificationStyle selects how a transient notification is rendered.
type NotificationStyle string

const (
	StyleInfo    NotificationStyle = "info"
	StyleSuccess NotificationStyle = "success"
	StyleWarning NotificationStyle = "warning"
	StyleError   NotificationStyle = "error"
)

// Notification is a transient, user-visible message (a toast).
type Notification struct {
	Style   NotificationStyle
	Message string
}

// State is the shared application state. Safe for concurrent use.
type State struct {
	mu            sync.Mutex
	authState     AuthState
	notifications chan Notification
}

func New() *State {
	return &State{
		authState:     AuthUnknown,
		notifications: make(chan Notification, 16),
	}
}

// AuthState returns the current session state.
func (s *State) AuthState() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState
}

// SetAuthState transitions the session state. Transitions back to
// AuthUnknown are ignored; unknown is an initial value, not a destination.
func (s *State) SetAuthState(next AuthState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if next == AuthUnknown && s.authState != AuthUnknown {
		return
	}
	s.authState = next
}

// Notify posts a transient notification. It never blocks; if no consumer
// keeps up the oldest pending notification is dropped.
func (s *State) Notify(style NotificationStyle, message string) {
	n := Notification{Style: style, Message: message}
	for {
		select {
		case s.notifications <- n:
			return
		default:
			select {
			case <-s.notifications:
			default:
			}
		}
	}
}

// Notifications is the stream the presentation layer renders toasts from.
func (s *State) Notifications() <-chan Notification {
	return s.notifications
}
