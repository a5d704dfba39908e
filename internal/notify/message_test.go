package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

var (
	admins = []api.User{
		{ID: "a1", FullName: "Ada", Email: "ada@lab.test", IsAdmin: true},
		{ID: "a2", FullName: "Bo", Email: "", IsAdmin: true},
		{ID: "a3", FullName: "Ada again", Email: "ada@lab.test", IsAdmin: true},
	}
	student = api.User{ID: "u1", FullName: "Jo Doe", Username: "jdoe", Email: "jdoe@lab.test"}
	beaker  = api.Item{ID: "i1", Name: "Beaker"}
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name           string
		event          events.Event
		wantRecipients []string
		wantSubject    string
		wantBody       string
	}{
		{
			name:           "new user goes to admins",
			event:          events.Event{Kind: events.UserCreated, User: &student, Admins: admins},
			wantRecipients: []string{"ada@lab.test"},
			wantSubject:    "New account awaiting approval",
			wantBody:       "Jo Doe (jdoe, jdoe@lab.test) signed up and is waiting for approval.",
		},
		{
			name:           "approval goes to the user",
			event:          events.Event{Kind: events.UserApproved, User: &student, Admins: admins},
			wantRecipients: []string{"jdoe@lab.test"},
			wantSubject:    "Your OliLab account was approved",
		},
		{
			name:           "denial goes to the user",
			event:          events.Event{Kind: events.UserDenied, User: &student},
			wantRecipients: []string{"jdoe@lab.test"},
			wantSubject:    "Your OliLab account was not approved",
		},
		{
			name:           "borrow request names item and quantity",
			event:          events.Event{Kind: events.BorrowRequested, User: &student, Item: &beaker, Log: &api.LogEntry{Quantity: 3}, Admins: admins},
			wantRecipients: []string{"ada@lab.test"},
			wantSubject:    "New borrow request: Beaker",
			wantBody:       "Jo Doe requested 3 x Beaker.",
		},
		{
			name:           "borrow denial carries the reason",
			event:          events.Event{Kind: events.BorrowDenied, User: &student, Item: &beaker, Log: &api.LogEntry{Quantity: 1, Reason: "out for cleaning"}},
			wantRecipients: []string{"jdoe@lab.test"},
			wantSubject:    "Borrow request denied: Beaker",
			wantBody:       "Your request for 1 x Beaker was denied. Reason: out for cleaning",
		},
		{
			name:           "dangling item still composes",
			event:          events.Event{Kind: events.ReturnRequested, User: &student, Log: &api.LogEntry{Quantity: 2}, Admins: admins},
			wantRecipients: []string{"ada@lab.test"},
			wantSubject:    "Return request: an item",
			wantBody:       "Jo Doe wants to return 2 x an item.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Compose(tt.event)
			assert.True(t, ok)
			assert.Equal(t, tt.event.Kind, m.Kind)
			assert.Equal(t, tt.wantRecipients, m.Recipients)
			assert.Equal(t, tt.wantSubject, m.Subject)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, m.Body)
			}
		})
	}
}

func TestCompose_SkipsWithoutRecipients(t *testing.T) {
	cases := []events.Event{
		{Kind: events.StateLoaded},
		{Kind: events.UserCreated, User: &student},
		{Kind: events.UserApproved},
		{Kind: events.BorrowApproved, User: &api.User{ID: "u2"}, Log: &api.LogEntry{}},
		{Kind: events.BorrowRequested, Admins: admins},
	}
	for _, e := range cases {
		_, ok := Compose(e)
		assert.False(t, ok, string(e.Kind))
	}
}
