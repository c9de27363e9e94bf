package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookRegistryPriorityOrder(t *testing.T) {
	var registry HookRegistry
	order := make([]string, 0)

	registry.RegisterWithPriority(func(ev SessionEvent) error {
		order = append(order, "late")
		return nil
	}, 10)
	registry.Register(func(ev SessionEvent) error {
		order = append(order, "default")
		return nil
	})
	registry.RegisterWithPriority(func(ev SessionEvent) error {
		order = append(order, "early")
		return nil
	}, -10)

	assert.Equal(t, 3, registry.Count())
	registry.Run(SessionEvent{})
	assert.Equal(t, []string{"early", "default", "late"}, order)
}

func TestHookRegistryFailureDoesNotStopOthers(t *testing.T) {
	var registry HookRegistry
	ran := false

	registry.RegisterWithPriority(func(ev SessionEvent) error {
		return errors.New("boom")
	}, -1)
	registry.Register(func(ev SessionEvent) error {
		ran = true
		return nil
	})

	registry.Run(SessionEvent{})
	assert.True(t, ran)
}

func TestSessionHooksFireOnLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var registered, quit []string
	srv.OnRegister.Register(func(ev SessionEvent) error {
		registered = append(registered, ev.Client.Nick())
		return nil
	})
	srv.OnQuit.Register(func(ev SessionEvent) error {
		quit = append(quit, ev.Client.Nick()+":"+ev.Reason)
		return nil
	})

	alice, _ := newRegisteredClient(t, srv, "alice")
	require.Equal(t, []string{"alice"}, registered)

	srv.QuitClient(alice, "bye")
	assert.Equal(t, []string{"alice:bye"}, quit)

	// Teardown of an unregistered session still fires the quit hook
	c, _ := newTestSession(srv)
	srv.QuitClient(c, "gone")
	assert.Equal(t, []string{"alice:bye", ":gone"}, quit)
}
