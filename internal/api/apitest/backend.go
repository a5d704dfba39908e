// Package apitest provides an in-memory laboratory backend for tests.
//
// The fake implements every endpoint the client calls with the same
// side effects the real server has: borrow approval decrements availability,
// returns increment it, sign-ups and borrow requests create admin
// notifications. It is deliberately small and keeps no history.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

// Backend is a fake laboratory server.
type Backend struct {
	mu        sync.Mutex
	state     api.AppState
	passwords map[string]string
	failures  map[string]failure
	seq       int
	requests  int
}

type failure struct {
	status int
	body   string
}

// New returns a backend seeded with a copy of seed.
func New(seed api.AppState) *Backend {
	return &Backend{
		state:     cloneState(seed),
		passwords: make(map[string]string),
		failures:  make(map[string]failure),
	}
}

// Start serves the backend on an httptest server closed at test cleanup and
// returns the API base URL.
func (b *Backend) Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

// SetPassword registers a login password for a user id.
func (b *Backend) SetPassword(userID, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passwords[userID] = password
}

// FailNext makes the next request matching "METHOD /api/path" answer with
// status and body instead of being handled.
func (b *Backend) FailNext(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, body: body}
}

// State returns a copy of the server-side state.
func (b *Backend) State() api.AppState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneState(b.state)
}

// Mutate lets a test change server-side state directly, e.g. to revoke a
// user between two loads.
func (b *Backend) Mutate(fn func(*api.AppState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.state)
}

// Requests returns how many requests reached the backend.
func (b *Backend) Requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

// Handler returns the chi router serving /api.
func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.countAndFail)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", b.login)
		r.Get("/data", b.data)

		r.Post("/items", b.addItem)
		r.Post("/items/import", b.importItems)
		r.Put("/items/{id}", b.editItem)
		r.Delete("/items/{id}", b.deleteItem)

		r.Post("/users", b.createUser)
		r.Put("/users/{id}", b.editUser)
		r.Delete("/users/{id}", b.deleteUser)
		r.Post("/users/{id}/approve", b.setUserStatus(api.StatusApproved))
		r.Post("/users/{id}/deny", b.setUserStatus(api.StatusDenied))

		r.Post("/logs/borrow", b.requestBorrow)
		r.Post("/logs/return", b.returnItem)
		r.Post("/logs/{id}/approve", b.approveBorrow)
		r.Post("/logs/{id}/deny", b.denyBorrow)
		r.Post("/logs/{id}/request-return", b.requestReturn)

		r.Post("/suggestions", b.addSuggestion)
		r.Post("/suggestions/{id}/approve-item", b.approveItemSuggestion)
		r.Post("/suggestions/{id}/approve-feature", b.approveFeatureSuggestion)
		r.Post("/suggestions/{id}/deny", b.denySuggestion)

		r.Post("/comments", b.addComment)
	})
	return r
}

func (b *Backend) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests++
		key := r.Method + " " + r.URL.Path
		f, ok := b.failures[key]
		if ok {
			delete(b.failures, key)
		}
		b.mu.Unlock()

		if ok {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if !decode(w, r, &creds) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.state.Users {
		if u.Username != creds.Identifier && u.Email != creds.Identifier {
			continue
		}
		if b.passwords[u.ID] != creds.Password {
			break
		}
		writeJSON(w, http.StatusOK, u)
		return
	}
	writeError(w, http.StatusUnauthorized, "Invalid credentials")
}

func (b *Backend) data(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, b.State())
}

func (b *Backend) addItem(w http.ResponseWriter, r *http.Request) {
	var in api.ItemInput
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	item := b.newItem(in)
	writeJSON(w, http.StatusCreated, item)
}

func (b *Backend) importItems(w http.ResponseWriter, r *http.Request) {
	var in []api.ItemInput
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.Item, 0, len(in))
	for _, one := range in {
		out = append(out, b.newItem(one))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (b *Backend) editItem(w http.ResponseWriter, r *http.Request) {
	var in api.ItemInput
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, item := range b.state.Items {
		if item.ID != id {
			continue
		}
		borrowed := item.TotalQuantity - item.AvailableQuantity
		if in.TotalQuantity < borrowed {
			writeError(w, http.StatusConflict, "Total quantity is below the borrowed amount")
			return
		}
		item.Name = in.Name
		item.Category = in.Category
		item.TotalQuantity = in.TotalQuantity
		item.AvailableQuantity = in.TotalQuantity - borrowed
		b.state.Items[i] = item
		writeJSON(w, http.StatusOK, item)
		return
	}
	writeError(w, http.StatusNotFound, "Item not found")
}

func (b *Backend) deleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Items = removeByID(b.state.Items, id, func(i api.Item) string { return i.ID })
	writeJSON(w, http.StatusOK, api.DeletedID{ID: id})
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var in api.UserInput
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.state.Users {
		if u.Username == in.Username || u.Email == in.Email {
			writeError(w, http.StatusConflict, "Username or email already exists")
			return
		}
	}
	user := api.User{
		ID:         b.nextID("u"),
		FullName:   in.FullName,
		Username:   in.Username,
		Email:      in.Email,
		LRN:        in.LRN,
		GradeLevel: in.GradeLevel,
		Section:    in.Section,
		Role:       in.Role,
		Status:     api.StatusPending,
		IsAdmin:    in.IsAdmin,
	}
	b.state.Users = append(b.state.Users, user)
	b.passwords[user.ID] = in.Password
	note := b.newNotification(api.NotifyNewUser, fmt.Sprintf("New user %s is awaiting approval", user.FullName), api.RecipientAdmins)
	note.RelatedUserID = user.ID
	b.state.Notifications = append(b.state.Notifications, note)
	writeJSON(w, http.StatusCreated, api.CreatedUser{NewUser: user, NewNotification: note})
}

func (b *Backend) editUser(w http.ResponseWriter, r *http.Request) {
	var in api.UserInput
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, u := range b.state.Users {
		if u.ID != id {
			continue
		}
		u.FullName = in.FullName
		u.Username = in.Username
		u.Email = in.Email
		u.LRN = in.LRN
		u.GradeLevel = in.GradeLevel
		u.Section = in.Section
		u.Role = in.Role
		u.IsAdmin = in.IsAdmin
		b.state.Users[i] = u
		if in.Password != "" {
			b.passwords[id] = in.Password
		}
		writeJSON(w, http.StatusOK, u)
		return
	}
	writeError(w, http.StatusNotFound, "User not found")
}

func (b *Backend) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Users = removeByID(b.state.Users, id, func(u api.User) string { return u.ID })
	delete(b.passwords, id)
	writeJSON(w, http.StatusOK, api.DeletedID{ID: id})
}

func (b *Backend) setUserStatus(status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, u := range b.state.Users {
			if u.ID == id {
				u.Status = status
				b.state.Users[i] = u
				writeJSON(w, http.StatusOK, u)
				return
			}
		}
		writeError(w, http.StatusNotFound, "User not found")
	}
}

func (b *Backend) requestBorrow(w http.ResponseWriter, r *http.Request) {
	var in api.BorrowRequest
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.itemIndex(in.ItemID)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	if in.Quantity > b.state.Items[idx].AvailableQuantity {
		writeError(w, http.StatusConflict, "Not enough items available")
		return
	}
	entry := api.LogEntry{
		ID:        b.nextID("l"),
		ItemID:    in.ItemID,
		UserID:    in.UserID,
		Quantity:  in.Quantity,
		Timestamp: now(),
		Action:    api.ActionBorrow,
		Status:    api.LogPending,
	}
	b.state.Logs = append(b.state.Logs, entry)
	note := b.newNotification(api.NotifyBorrowRequest, fmt.Sprintf("New borrow request for %s", b.state.Items[idx].Name), api.RecipientAdmins)
	note.RelatedLogID = entry.ID
	b.state.Notifications = append(b.state.Notifications, note)
	writeJSON(w, http.StatusCreated, api.BorrowCreated{NewLog: entry, NewNotification: note})
}

func (b *Backend) approveBorrow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	li := b.logIndex(id)
	if li < 0 {
		writeError(w, http.StatusNotFound, "Log not found")
		return
	}
	entry := b.state.Logs[li]
	if entry.Status != api.LogPending {
		writeError(w, http.StatusConflict, "Request is no longer pending")
		return
	}
	ii := b.itemIndex(entry.ItemID)
	if ii < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	item := b.state.Items[ii]
	if entry.Quantity > item.AvailableQuantity {
		writeError(w, http.StatusConflict, "Not enough items available")
		return
	}
	item.AvailableQuantity -= entry.Quantity
	entry.Status = api.LogApproved
	b.state.Items[ii] = item
	b.state.Logs[li] = entry
	writeJSON(w, http.StatusOK, api.BorrowApproved{UpdatedLog: entry, UpdatedItem: item})
}

func (b *Backend) denyBorrow(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	li := b.logIndex(id)
	if li < 0 {
		writeError(w, http.StatusNotFound, "Log not found")
		return
	}
	entry := b.state.Logs[li]
	entry.Status = api.LogDenied
	entry.Reason = in.Reason
	b.state.Logs[li] = entry
	writeJSON(w, http.StatusOK, entry)
}

func (b *Backend) returnItem(w http.ResponseWriter, r *http.Request) {
	var in api.ReturnRequest
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	li := b.logIndex(in.BorrowLog.ID)
	if li < 0 {
		writeError(w, http.StatusNotFound, "Log not found")
		return
	}
	borrow := b.state.Logs[li]
	if borrow.Status != api.LogApproved {
		writeError(w, http.StatusConflict, "Item is not currently borrowed")
		return
	}
	ii := b.itemIndex(borrow.ItemID)
	if ii < 0 {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	item := b.state.Items[ii]
	item.AvailableQuantity = min(item.AvailableQuantity+borrow.Quantity, item.TotalQuantity)
	borrow.Status = api.LogReturned
	borrow.ReturnRequested = false
	ret := api.LogEntry{
		ID:           b.nextID("l"),
		ItemID:       borrow.ItemID,
		UserID:       borrow.UserID,
		Quantity:     borrow.Quantity,
		Timestamp:    now(),
		Action:       api.ActionReturn,
		Status:       api.LogCompleted,
		AdminNotes:   in.AdminNotes,
		RelatedLogID: borrow.ID,
	}
	b.state.Items[ii] = item
	b.state.Logs[li] = borrow
	b.state.Logs = append(b.state.Logs, ret)
	writeJSON(w, http.StatusOK, api.ItemReturned{ReturnLog: ret, UpdatedBorrowLog: borrow, UpdatedItem: item})
}

func (b *Backend) requestReturn(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	li := b.logIndex(id)
	if li < 0 {
		writeError(w, http.StatusNotFound, "Log not found")
		return
	}
	entry := b.state.Logs[li]
	entry.ReturnRequested = true
	b.state.Logs[li] = entry
	note := b.newNotification(api.NotifyReturnRequest, "A user requested to return an item", api.RecipientAdmins)
	note.RelatedLogID = entry.ID
	b.state.Notifications = append(b.state.Notifications, note)
	writeJSON(w, http.StatusOK, api.ReturnRequested{UpdatedLog: entry, NewNotification: note})
}

func (b *Backend) addSuggestion(w http.ResponseWriter, r *http.Request) {
	var in api.SuggestionInput
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := api.Suggestion{
		ID:          b.nextID("s"),
		UserID:      in.UserID,
		Type:        in.Type,
		Title:       in.Title,
		Description: in.Description,
		Status:      api.StatusPending,
		Timestamp:   now(),
	}
	b.state.Suggestions = append(b.state.Suggestions, s)
	writeJSON(w, http.StatusCreated, s)
}

func (b *Backend) approveItemSuggestion(w http.ResponseWriter, r *http.Request) {
	var in api.ItemApproval
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	si := b.suggestionIndex(id)
	if si < 0 {
		writeError(w, http.StatusNotFound, "Suggestion not found")
		return
	}
	s := b.state.Suggestions[si]
	s.Status = api.StatusApproved
	s.Category = in.Category
	b.state.Suggestions[si] = s
	item := b.newItem(api.ItemInput{Name: s.Title, Category: in.Category, TotalQuantity: in.TotalQuantity})
	writeJSON(w, http.StatusOK, api.ItemSuggestionApproved{UpdatedSuggestion: s, NewItem: item})
}

func (b *Backend) approveFeatureSuggestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	si := b.suggestionIndex(id)
	if si < 0 {
		writeError(w, http.StatusNotFound, "Suggestion not found")
		return
	}
	s := b.state.Suggestions[si]
	s.Status = api.StatusApproved
	b.state.Suggestions[si] = s
	writeJSON(w, http.StatusOK, s)
}

func (b *Backend) denySuggestion(w http.ResponseWriter, r *http.Request) {
	var in api.SuggestionDenial
	if !decode(w, r, &in) {
		return
	}
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	si := b.suggestionIndex(id)
	if si < 0 {
		writeError(w, http.StatusNotFound, "Suggestion not found")
		return
	}
	s := b.state.Suggestions[si]
	s.Status = api.StatusDenied
	b.state.Suggestions[si] = s
	c := api.Comment{
		ID:           b.nextID("c"),
		SuggestionID: s.ID,
		UserID:       in.AdminID,
		Text:         "Denied: " + in.Reason,
		Timestamp:    now(),
	}
	b.state.Comments = append(b.state.Comments, c)
	writeJSON(w, http.StatusOK, api.SuggestionDenied{UpdatedSuggestion: s, NewComment: c})
}

func (b *Backend) addComment(w http.ResponseWriter, r *http.Request) {
	var in api.CommentInput
	if !decode(w, r, &in) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c := api.Comment{
		ID:           b.nextID("c"),
		SuggestionID: in.SuggestionID,
		UserID:       in.UserID,
		Text:         in.Text,
		Timestamp:    now(),
	}
	b.state.Comments = append(b.state.Comments, c)
	writeJSON(w, http.StatusCreated, c)
}

// Helpers below expect b.mu to be held.

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func (b *Backend) newItem(in api.ItemInput) api.Item {
	item := api.Item{
		ID:                b.nextID("i"),
		Name:              in.Name,
		Category:          in.Category,
		TotalQuantity:     in.TotalQuantity,
		AvailableQuantity: in.TotalQuantity,
	}
	b.state.Items = append(b.state.Items, item)
	return item
}

func (b *Backend) newNotification(kind, message, recipient string) api.Notification {
	return api.Notification{
		ID:          b.nextID("n"),
		Type:        kind,
		Message:     message,
		Timestamp:   now(),
		RecipientID: recipient,
	}
}

func (b *Backend) itemIndex(id string) int {
	for i, item := range b.state.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) logIndex(id string) int {
	for i, entry := range b.state.Logs {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

func (b *Backend) suggestionIndex(id string) int {
	for i, s := range b.state.Suggestions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func removeByID[T any](list []T, id string, key func(T) string) []T {
	out := list[:0]
	for _, v := range list {
		if key(v) != id {
			out = append(out, v)
		}
	}
	return out
}

func cloneState(s api.AppState) api.AppState {
	return api.AppState{
		Items:         append([]api.Item(nil), s.Items...),
		Users:         append([]api.User(nil), s.Users...),
		Logs:          append([]api.LogEntry(nil), s.Logs...),
		Notifications: append([]api.Notification(nil), s.Notifications...),
		Suggestions:   append([]api.Suggestion(nil), s.Suggestions...),
		Comments:      append([]api.Comment(nil), s.Comments...),
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body: "+strings.TrimSpace(err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
