package notify

import (
	"fmt"
	"strings"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

// Message is one outbound notification.
type Message struct {
	Kind       events.Kind `json:"kind"`
	Recipients []string    `json:"recipients"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
}

// Kinds lists the events that produce messages.
var Kinds = []events.Kind{
	events.UserCreated,
	events.UserApproved,
	events.UserDenied,
	events.BorrowRequested,
	events.BorrowApproved,
	events.BorrowDenied,
	events.ReturnRequested,
}

// Compose builds the message for e. It reports false when the event does not
// produce a message or nobody can receive it.
func Compose(e events.Event) (Message, bool) {
	m := Message{Kind: e.Kind}
	user := displayName(e.User)
	item := "an item"
	if e.Item != nil {
		item = e.Item.Name
	}

	switch e.Kind {
	case events.UserCreated:
		if e.User == nil {
			return Message{}, false
		}
		m.Recipients = emails(e.Admins)
		m.Subject = "New account awaiting approval"
		m.Body = fmt.Sprintf("%s (%s, %s) signed up and is waiting for approval.", user, e.User.Username, e.User.Email)
	case events.UserApproved:
		m.Recipients = emails(single(e.User))
		m.Subject = "Your OliLab account was approved"
		m.Body = fmt.Sprintf("Hello %s, your account is approved. You can now log in and borrow equipment.", user)
	case events.UserDenied:
		m.Recipients = emails(single(e.User))
		m.Subject = "Your OliLab account was not approved"
		m.Body = fmt.Sprintf("Hello %s, your account request was denied. Contact the laboratory staff for details.", user)
	case events.BorrowRequested:
		if e.Log == nil {
			return Message{}, false
		}
		m.Recipients = emails(e.Admins)
		m.Subject = "New borrow request: " + item
		m.Body = fmt.Sprintf("%s requested %d x %s.", user, e.Log.Quantity, item)
	case events.BorrowApproved:
		if e.Log == nil {
			return Message{}, false
		}
		m.Recipients = emails(single(e.User))
		m.Subject = "Borrow request approved: " + item
		m.Body = fmt.Sprintf("Your request for %d x %s was approved.", e.Log.Quantity, item)
	case events.BorrowDenied:
		if e.Log == nil {
			return Message{}, false
		}
		m.Recipients = emails(single(e.User))
		m.Subject = "Borrow request denied: " + item
		m.Body = fmt.Sprintf("Your request for %d x %s was denied.", e.Log.Quantity, item)
		if reason := strings.TrimSpace(e.Log.Reason); reason != "" {
			m.Body += " Reason: " + reason
		}
	case events.ReturnRequested:
		if e.Log == nil {
			return Message{}, false
		}
		m.Recipients = emails(e.Admins)
		m.Subject = "Return request: " + item
		m.Body = fmt.Sprintf("%s wants to return %d x %s.", user, e.Log.Quantity, item)
	default:
		return Message{}, false
	}

	if len(m.Recipients) == 0 {
		return Message{}, false
	}
	return m, true
}

func displayName(u *api.User) string {
	switch {
	case u == nil:
		return "A user"
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return u.ID
	}
}

func single(u *api.User) []api.User {
	if u == nil {
		return nil
	}
	return []api.User{*u}
}

func emails(users []api.User) []string {
	var out []string
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		addr := strings.TrimSpace(u.Email)
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
