package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api/apitest"
)

func seed() api.AppState {
	return api.AppState{
		Items: []api.Item{{ID: "i1", Name: "Beaker", Category: "Glassware", TotalQuantity: 10, AvailableQuantity: 10}},
		Users: []api.User{
			{ID: "admin", Username: "admin", Email: "admin@lab.test", Status: api.StatusApproved, IsAdmin: true},
			{ID: "u1", Username: "jdoe", Email: "jdoe@lab.test", Status: api.StatusApproved},
		},
	}
}

func newClient(t *testing.T, backend *apitest.Backend) *api.Client {
	t.Helper()
	c, err := api.NewClient(backend.Start(t))
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestClient_LoginAndFetchState(t *testing.T) {
	backend := apitest.New(seed())
	backend.SetPassword("u1", "secret")
	c := newClient(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	user, err := c.Login(ctx, api.Credentials{Identifier: "jdoe", Password: "secret"})
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if user.ID != "u1" || !user.Approved() {
		t.Fatalf("Login user = %#v, want approved u1", user)
	}

	_, err = c.Login(ctx, api.Credentials{Identifier: "jdoe", Password: "wrong"})
	var reqErr *api.RequestFailedError
	if !errors.As(err, &reqErr) || reqErr.Status != http.StatusUnauthorized {
		t.Fatalf("Login error = %v, want 401 RequestFailedError", err)
	}
	if reqErr.Message != "Invalid credentials" {
		t.Fatalf("Login message = %q, want server message", reqErr.Message)
	}

	state, err := c.FetchState(ctx)
	if err != nil {
		t.Fatalf("FetchState returned error: %v", err)
	}
	if len(state.Items) != 1 || len(state.Users) != 2 {
		t.Fatalf("FetchState = %d items %d users, want 1 and 2", len(state.Items), len(state.Users))
	}
}

func TestClient_BorrowLifecycle(t *testing.T) {
	backend := apitest.New(seed())
	c := newClient(t, backend)
	ctx := context.Background()

	created, err := c.RequestBorrow(ctx, api.BorrowRequest{UserID: "u1", ItemID: "i1", Quantity: 3})
	if err != nil {
		t.Fatalf("RequestBorrow returned error: %v", err)
	}
	if created.NewLog.Status != api.LogPending || created.NewNotification.Type != api.NotifyBorrowRequest {
		t.Fatalf("RequestBorrow = %#v, want pending log and borrow notification", created)
	}

	approved, err := c.ApproveBorrow(ctx, created.NewLog.ID)
	if err != nil {
		t.Fatalf("ApproveBorrow returned error: %v", err)
	}
	if approved.UpdatedItem.AvailableQuantity != 7 || approved.UpdatedLog.Status != api.LogApproved {
		t.Fatalf("ApproveBorrow = %#v, want available 7 and approved log", approved)
	}

	returned, err := c.ReturnItem(ctx, api.ReturnRequest{BorrowLog: approved.UpdatedLog, AdminNotes: "ok"})
	if err != nil {
		t.Fatalf("ReturnItem returned error: %v", err)
	}
	if returned.UpdatedItem.AvailableQuantity != 10 ||
		returned.UpdatedBorrowLog.Status != api.LogReturned ||
		returned.ReturnLog.Action != api.ActionReturn {
		t.Fatalf("ReturnItem = %#v, want restored availability and return log", returned)
	}
}

func TestClient_RequestFailedMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json message", `{"message":"Item not found"}`, "Item not found"},
		{"json error", `{"error":"bad things"}`, "bad things"},
		{"plain text", "  upstream exploded \n", "upstream exploded"},
		{"empty", "", "HTTP error 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(tt.body))
			}))
			t.Cleanup(server.Close)

			c, err := api.NewClient(server.URL)
			if err != nil {
				t.Fatalf("NewClient returned error: %v", err)
			}
			_, err = c.FetchState(context.Background())
			if !errors.Is(err, api.ErrRequestFailed) {
				t.Fatalf("FetchState error = %v, want ErrRequestFailed", err)
			}
			if err.Error() != tt.want {
				t.Fatalf("message = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestClient_ConnectionUnavailableCarriesBaseURL(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL + "/api"
	server.Close()

	c, err := api.NewClient(base)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.FetchState(context.Background())

	var connErr *api.ConnectionUnavailableError
	if !errors.As(err, &connErr) {
		t.Fatalf("FetchState error = %v, want ConnectionUnavailableError", err)
	}
	if !strings.HasPrefix(connErr.URL, base) {
		t.Fatalf("URL = %q, want prefix %q", connErr.URL, base)
	}
	if !api.IsConnectionError(err) || errors.Is(err, api.ErrRequestFailed) {
		t.Fatalf("error kinds mixed up: %v", err)
	}
}

func TestClient_CancelledContextIsNotConnectionError(t *testing.T) {
	backend := apitest.New(seed())
	c := newClient(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchState(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("FetchState error = %v, want context.Canceled", err)
	}
	if api.IsConnectionError(err) {
		t.Fatalf("cancelled request reported as connection error")
	}
}

func TestClient_ValidationRejectsBeforeSending(t *testing.T) {
	backend := apitest.New(seed())
	c := newClient(t, backend)

	_, err := c.RequestBorrow(context.Background(), api.BorrowRequest{UserID: "u1", ItemID: "i1", Quantity: 0})
	var vErr *api.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("RequestBorrow error = %v, want ValidationError", err)
	}
	if _, ok := vErr.Fields["quantity"]; !ok {
		t.Fatalf("Fields = %v, want quantity", vErr.Fields)
	}

	_, err = c.ImportItems(context.Background(), []api.ItemInput{{Name: "ok", Category: "x"}, {Name: ""}})
	if !errors.Is(err, api.ErrValidation) {
		t.Fatalf("ImportItems error = %v, want ErrValidation", err)
	}
	if backend.Requests() != 0 {
		t.Fatalf("backend saw %d requests, want 0", backend.Requests())
	}
}

func TestClient_EditUserReplacesProfile(t *testing.T) {
	backend := apitest.New(seed())
	c := newClient(t, backend)

	_, err := c.EditUser(context.Background(), "u1", api.UserInput{Section: "B"})
	var vErr *api.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("EditUser error = %v, want ValidationError", err)
	}
	for _, field := range []string{"fullName", "username", "email"} {
		if _, ok := vErr.Fields[field]; !ok {
			t.Errorf("Fields = %v, want %s", vErr.Fields, field)
		}
	}
	if backend.Requests() != 0 {
		t.Fatalf("backend saw %d requests, want 0", backend.Requests())
	}

	user, err := c.EditUser(context.Background(), "u1", api.UserInput{
		FullName: "Jo Doe", Username: "jdoe", Email: "jdoe@lab.test", Section: "B",
	})
	if err != nil {
		t.Fatalf("EditUser returned error: %v", err)
	}
	if user.Section != "B" || user.FullName != "Jo Doe" || user.Status != api.StatusApproved {
		t.Fatalf("user = %+v, want replaced profile with status kept", user)
	}
}

func TestClient_MarkNotificationsReadIsLocal(t *testing.T) {
	backend := apitest.New(seed())
	c := newClient(t, backend)

	ids, err := c.MarkNotificationsRead(context.Background(), []string{"n1", "n2"})
	if err != nil {
		t.Fatalf("MarkNotificationsRead returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "n1" || ids[1] != "n2" {
		t.Fatalf("ids = %v, want echo", ids)
	}
	if backend.Requests() != 0 {
		t.Fatalf("backend saw %d requests, want 0", backend.Requests())
	}
}

func TestClient_DecodeErrorAndHeaders(t *testing.T) {
	var gotAgent, gotRequestID, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{not-json"))
	}))
	t.Cleanup(server.Close)

	c, err := api.NewClient(server.URL)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	_, err = c.DeleteItem(context.Background(), "i 1")
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("DeleteItem error = %v, want decode response error", err)
	}
	if !strings.HasPrefix(gotAgent, "olilab/") {
		t.Fatalf("User-Agent = %q, want olilab/*", gotAgent)
	}
	if gotRequestID == "" {
		t.Fatalf("X-Request-ID missing")
	}
	if gotPath != "/api/items/i 1" {
		t.Fatalf("path = %q, want /api/items/i 1", gotPath)
	}
}
