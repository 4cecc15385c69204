package appstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestState_InitialValue(t *testing.T) {
	s := New()
	require.Equal(t, AuthUnknown, s.AuthState(), "state must start unknown")
}

func TestState_Transitions(t *testing.T) {
	t.Run("startup check", func(t *testing.T) {
		s := New()
		s.SetAuthState(Authenticated)
		require.Equal(t, Authenticated, s.AuthState())
	})

	t.Run("login after logout", func(t *testing.T) {
		s := New()
		s.SetAuthState(Unauthenticated)
		s.SetAuthState(Authenticated)
		require.Equal(t, Authenticated, s.AuthState())
	})

	t.Run("unknown is never re-entered", func(t *testing.T) {
		s := New()
		s.SetAuthState(Authenticated)
		s.SetAuthState(AuthUnknown)
		require.Equal(t, Authenticated, s.AuthState())
	})
}

func TestState_Notify(t *testing.T) {
	s := New()

	s.Notify(StyleWarning, "Session expired, please login again.")

	select {
	case n := <-s.Notifications():
		require.Equal(t, StyleWarning, n.Style)
		require.Equal(t, "Session expired, please login again.", n.Message)
	default:
		t.Fatal("notification should be buffered")
	}
}

func TestState_NotifyNeverBlocks(t *testing.T) {
	s := New()

	// Overflow the buffer with no consumer attached.
	for i := 0; i < 100; i++ {
		s.Notify(StyleInfo, "msg")
	}

	require.NotEmpty(t, s.Notifications(), "latest notifications should remain consumable")
}
