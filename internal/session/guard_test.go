package session

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api/apitest"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

type stubAuth struct {
	user  api.User
	err   error
	calls int
}

func (s *stubAuth) Login(_ context.Context, _ api.Credentials) (api.User, error) {
	s.calls++
	return s.user, s.err
}

func newGuard(t *testing.T, auth Authenticator, bus *events.Bus) (*Guard, *FileStore) {
	t.Helper()
	storage := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	g := NewGuard(auth, storage, bus, zerolog.Nop())
	t.Cleanup(g.Close)
	return g, storage
}

func writeRaw(t *testing.T, storage *FileStore, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(storage.Path(), []byte(body), 0o600))
}

func TestGuard_StartsUnresolved(t *testing.T) {
	g, _ := newGuard(t, &stubAuth{}, nil)
	assert.Equal(t, Unresolved, g.State())
	_, ok := g.Current()
	assert.False(t, ok)
}

func TestGuard_ActivateRestoresApprovedUser(t *testing.T) {
	g, storage := newGuard(t, &stubAuth{}, nil)
	user := api.User{ID: "u1", FullName: "Jo Doe", Status: api.StatusApproved}
	require.NoError(t, storage.Save(user))

	assert.Equal(t, Authenticated, g.Activate())
	got, ok := g.Current()
	require.True(t, ok)
	assert.Equal(t, user, got)
}

func TestGuard_ActivateClearsUnusableSessions(t *testing.T) {
	cases := map[string]string{
		"malformed":    "not json",
		"missing id":   `{"status":"APPROVED"}`,
		"pending user": `{"id":"u1","status":"PENDING"}`,
		"denied user":  `{"id":"u1","status":"DENIED"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			g, storage := newGuard(t, &stubAuth{}, nil)
			writeRaw(t, storage, body)

			assert.Equal(t, Anonymous, g.Activate())
			_, err := os.Stat(storage.Path())
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestGuard_ActivateWithoutSessionIsAnonymous(t *testing.T) {
	g, _ := newGuard(t, &stubAuth{}, nil)
	assert.Equal(t, Anonymous, g.Activate())
}

func TestGuard_LoginPersistsApprovedUser(t *testing.T) {
	user := api.User{ID: "u1", Status: api.StatusApproved, IsAdmin: false}
	auth := &stubAuth{user: user}
	g, storage := newGuard(t, auth, nil)
	g.Activate()

	var states []State
	g.Subscribe(func(s State, _ *api.User) { states = append(states, s) })

	got, err := g.Login(context.Background(), "jdoe", "secret")
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.Equal(t, Authenticated, g.State())
	assert.Equal(t, []State{Authenticated}, states)

	raw, err := os.ReadFile(storage.Path())
	require.NoError(t, err)
	var persisted api.User
	require.NoError(t, json.Unmarshal(raw, &persisted))
	assert.Equal(t, user, persisted)
	assert.NotContains(t, string(raw), "secret")
}

func TestGuard_LoginRefusesUnapprovedAccount(t *testing.T) {
	auth := &stubAuth{user: api.User{ID: "u2", Status: api.StatusPending}}
	g, storage := newGuard(t, auth, nil)
	g.Activate()

	_, err := g.Login(context.Background(), "pending", "pw")
	assert.ErrorIs(t, err, ErrNotApproved)
	assert.Equal(t, Anonymous, g.State())
	_, statErr := os.Stat(storage.Path())
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestGuard_FailedLoginKeepsCurrentUser(t *testing.T) {
	user := api.User{ID: "u1", Status: api.StatusApproved}
	auth := &stubAuth{user: user}
	g, storage := newGuard(t, auth, nil)
	_, err := g.Login(context.Background(), "jdoe", "pw")
	require.NoError(t, err)

	var states []State
	g.Subscribe(func(s State, _ *api.User) { states = append(states, s) })

	auth.user, auth.err = api.User{}, &api.RequestFailedError{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
	_, err = g.Login(context.Background(), "other", "bad")
	require.Error(t, err)

	auth.user, auth.err = api.User{ID: "u2", Status: api.StatusPending}, nil
	_, err = g.Login(context.Background(), "pending", "pw")
	require.ErrorIs(t, err, ErrNotApproved)

	got, ok := g.Current()
	assert.True(t, ok)
	assert.Equal(t, user, got)
	assert.Empty(t, states)
	persisted, err := storage.Load()
	require.NoError(t, err)
	assert.Equal(t, "u1", persisted.ID)
}

func TestGuard_LoginAgainstBackend(t *testing.T) {
	backend := apitest.New(api.AppState{Users: []api.User{
		{ID: "u1", Username: "jdoe", Email: "jdoe@lab.test", Status: api.StatusApproved},
	}})
	backend.SetPassword("u1", "secret")
	client, err := api.NewClient(backend.Start(t))
	require.NoError(t, err)
	g, _ := newGuard(t, client, nil)
	g.Activate()

	_, err = g.Login(context.Background(), "jdoe", "wrong")
	var reqErr *api.RequestFailedError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusUnauthorized, reqErr.Status)
	assert.Equal(t, "Invalid credentials", reqErr.Message)
	assert.Equal(t, Anonymous, g.State())

	user, err := g.Login(context.Background(), "jdoe@lab.test", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, Authenticated, g.State())
}

func TestGuard_LogoutClearsSession(t *testing.T) {
	g, storage := newGuard(t, &stubAuth{user: api.User{ID: "u1", Status: api.StatusApproved}}, nil)
	_, err := g.Login(context.Background(), "jdoe", "pw")
	require.NoError(t, err)

	g.Logout()
	assert.Equal(t, Anonymous, g.State())
	_, err = os.Stat(storage.Path())
	assert.ErrorIs(t, err, os.ErrNotExist)

	g.Logout()
	assert.Equal(t, Anonymous, g.State())
}

func TestGuard_RevalidatesOnStateLoaded(t *testing.T) {
	held := api.User{ID: "u1", FullName: "Jo Doe", Status: api.StatusApproved}
	other := api.User{ID: "u9", Status: api.StatusApproved}

	tests := []struct {
		name      string
		event     events.Event
		wantState State
		wantName  string
	}{
		{
			name:      "refreshes changed profile",
			event:     events.Event{Users: []api.User{other, {ID: "u1", FullName: "Jo Q. Doe", Status: api.StatusApproved}}},
			wantState: Authenticated,
			wantName:  "Jo Q. Doe",
		},
		{
			name:      "logs out removed user",
			event:     events.Event{Users: []api.User{other}},
			wantState: Anonymous,
		},
		{
			name:      "logs out denied user",
			event:     events.Event{Users: []api.User{{ID: "u1", Status: api.StatusDenied}}},
			wantState: Anonymous,
		},
		{
			name:      "ignores empty user list",
			event:     events.Event{},
			wantState: Authenticated,
			wantName:  "Jo Doe",
		},
		{
			name:      "ignores failed load",
			event:     events.Event{Err: assert.AnError, Users: []api.User{other}},
			wantState: Authenticated,
			wantName:  "Jo Doe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := events.NewBus(zerolog.Nop())
			g, storage := newGuard(t, &stubAuth{}, bus)
			require.NoError(t, storage.Save(held))
			require.Equal(t, Authenticated, g.Activate())

			tt.event.Kind = events.StateLoaded
			bus.Publish(tt.event)

			assert.Equal(t, tt.wantState, g.State())
			stored, err := storage.Load()
			if tt.wantState == Anonymous {
				assert.ErrorIs(t, err, os.ErrNotExist)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, stored.FullName)
			current, _ := g.Current()
			assert.Equal(t, tt.wantName, current.FullName)
		})
	}
}

func TestGuard_StaleVerdictDoesNotTouchNewLogin(t *testing.T) {
	auth := &stubAuth{user: api.User{ID: "u2", Status: api.StatusApproved}}
	g, storage := newGuard(t, auth, nil)
	_, err := g.Login(context.Background(), "second", "pw")
	require.NoError(t, err)

	// A revalidation computed for u1 arrives after u2 logged in.
	assert.False(t, g.replaceHeld("u1", Anonymous, api.User{}))

	got, ok := g.Current()
	assert.True(t, ok)
	assert.Equal(t, "u2", got.ID)
	_, err = os.Stat(storage.Path())
	assert.NoError(t, err)

	assert.True(t, g.replaceHeld("u2", Anonymous, api.User{}))
	assert.Equal(t, Anonymous, g.State())
}

func TestGuard_IgnoresStateLoadedWhenAnonymous(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	g, _ := newGuard(t, &stubAuth{}, bus)
	g.Activate()

	bus.Publish(events.Event{Kind: events.StateLoaded, Users: []api.User{{ID: "u1", Status: api.StatusApproved}}})
	assert.Equal(t, Anonymous, g.State())
}

func TestGuard_CloseStopsRevalidation(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	g, storage := newGuard(t, &stubAuth{}, bus)
	require.NoError(t, storage.Save(api.User{ID: "u1", Status: api.StatusApproved}))
	g.Activate()

	g.Close()
	bus.Publish(events.Event{Kind: events.StateLoaded, Users: []api.User{{ID: "u2", Status: api.StatusApproved}}})
	assert.Equal(t, Authenticated, g.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unresolved", Unresolved.String())
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticated", Authenticated.String())
}
