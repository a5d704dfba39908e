// Package session decides who is using the client.
//
// A Guard starts Unresolved. Activate resolves it from the session file to
// either Anonymous or Authenticated; Login and Logout move between the two.
// Whenever the store finishes a full load the guard re-checks the held user
// against the fresh user list and logs out accounts that were deleted or are
// no longer approved.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

var (
	// ErrNotApproved is returned by Login for accounts that are pending or
	// denied.
	ErrNotApproved = errors.New("account is not approved")
	// ErrMalformedSession marks a session file that cannot be trusted. It is
	// handled by clearing the file and never reaches the user.
	ErrMalformedSession = errors.New("malformed session")
)

// State is the guard's authentication state.
type State int

const (
	Unresolved State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unresolved"
	}
}

// Authenticator verifies credentials. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (api.User, error)
}

// Guard tracks the current user.
type Guard struct {
	auth    Authenticator
	storage *FileStore
	log     zerolog.Logger

	mu    sync.Mutex
	state State
	user  api.User

	subMu   sync.Mutex
	subs    map[uint64]func(State, *api.User)
	nextSub uint64

	unsubscribe func()
}

// NewGuard returns an Unresolved guard. When bus is non-nil the guard
// subscribes to events.StateLoaded until Close.
func NewGuard(auth Authenticator, storage *FileStore, bus *events.Bus, log zerolog.Logger) *Guard {
	g := &Guard{
		auth:        auth,
		storage:     storage,
		log:         log.With().Str("component", "session").Logger(),
		subs:        make(map[uint64]func(State, *api.User)),
		unsubscribe: func() {},
	}
	if bus != nil {
		g.unsubscribe = bus.Subscribe(g.revalidate, events.StateLoaded)
	}
	return g
}

// Close stops listening for state loads.
func (g *Guard) Close() {
	g.unsubscribe()
}

// Activate resolves the guard from the session file. Only a well-formed
// record of an approved user authenticates; anything else clears the file.
func (g *Guard) Activate() State {
	user, err := g.storage.Load()
	switch {
	case err == nil && user.Approved():
		g.set(Authenticated, user)
		g.log.Info().Str("user_id", user.ID).Msg("session restored")
		return Authenticated
	case err == nil:
		g.log.Debug().Str("user_id", user.ID).Str("status", user.Status).Msg("stored user not approved")
	default:
		g.log.Debug().Err(err).Msg("no usable session")
	}
	g.clearStorage()
	g.set(Anonymous, api.User{})
	return Anonymous
}

// Login authenticates against the backend. On success the user is persisted
// and the guard becomes Authenticated. On failure the guard keeps its
// current state and the error is returned.
func (g *Guard) Login(ctx context.Context, identifier, password string) (api.User, error) {
	user, err := g.auth.Login(ctx, api.Credentials{Identifier: identifier, Password: password})
	if err != nil {
		return api.User{}, err
	}
	if !user.Approved() {
		g.log.Info().Str("user_id", user.ID).Str("status", user.Status).Msg("login refused")
		return api.User{}, ErrNotApproved
	}

	if err := g.storage.Save(user); err != nil {
		g.log.Warn().Err(err).Msg("persist session")
	}
	g.set(Authenticated, user)
	g.log.Info().Str("user_id", user.ID).Bool("admin", user.IsAdmin).Msg("logged in")
	return user, nil
}

// Logout forgets the current user.
func (g *Guard) Logout() {
	g.clearStorage()
	g.set(Anonymous, api.User{})
}

// Current returns the authenticated user.
func (g *Guard) Current() (api.User, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.user, g.state == Authenticated
}

// State returns the current authentication state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe registers fn for every state change. user is nil unless the new
// state is Authenticated.
func (g *Guard) Subscribe(fn func(State, *api.User)) (unsubscribe func()) {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	g.nextSub++
	id := g.nextSub
	g.subs[id] = fn
	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.subs, id)
	}
}

// revalidate handles events.StateLoaded. A failed load is ignored even when
// it carries users, since those are the previous snapshot and say nothing
// new about the account. An empty user list is ignored too.
//
// The verdict only applies while the guard still holds the user it was
// computed for; a Login that lands in between wins.
func (g *Guard) revalidate(e events.Event) {
	if e.Err != nil || len(e.Users) == 0 {
		return
	}
	held, ok := g.Current()
	if !ok {
		return
	}

	for _, fresh := range e.Users {
		if fresh.ID != held.ID {
			continue
		}
		if !fresh.Approved() {
			if g.replaceHeld(held.ID, Anonymous, api.User{}) {
				g.log.Info().Str("user_id", held.ID).Str("status", fresh.Status).Msg("account no longer approved, logging out")
				g.clearStorage()
			}
			return
		}
		if g.replaceHeld(held.ID, Authenticated, fresh) {
			if err := g.storage.Save(fresh); err != nil {
				g.log.Warn().Err(err).Msg("persist session")
			}
		}
		return
	}

	if g.replaceHeld(held.ID, Anonymous, api.User{}) {
		g.log.Info().Str("user_id", held.ID).Msg("account removed, logging out")
		g.clearStorage()
	}
}

// replaceHeld moves to state only if the guard is still Authenticated as
// heldID. It reports whether the transition happened.
func (g *Guard) replaceHeld(heldID string, state State, user api.User) bool {
	g.mu.Lock()
	if g.state != Authenticated || g.user.ID != heldID {
		g.mu.Unlock()
		return false
	}
	g.state = state
	g.user = user
	g.mu.Unlock()

	g.notify(state, user)
	return true
}

func (g *Guard) set(state State, user api.User) {
	g.mu.Lock()
	g.state = state
	g.user = user
	g.mu.Unlock()

	g.notify(state, user)
}

func (g *Guard) notify(state State, user api.User) {
	g.subMu.Lock()
	fns := make([]func(State, *api.User), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()

	for _, fn := range fns {
		var u *api.User
		if state == Authenticated {
			dup := user
			u = &dup
		}
		fn(state, u)
	}
}

func (g *Guard) clearStorage() {
	if err := g.storage.Clear(); err != nil {
		g.log.Warn().Err(err).Msg("clear session")
	}
}
