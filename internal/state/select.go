package state

import (
	"sort"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
)

// Missing is shown in place of a cross-reference that does not resolve in
// the snapshot.
const Missing = "N/A"

// ItemByID looks up an item.
func (s Snapshot) ItemByID(id string) (api.Item, bool) {
	for _, item := range s.State.Items {
		if item.ID == id {
			return item, true
		}
	}
	return api.Item{}, false
}

// UserByID looks up a user.
func (s Snapshot) UserByID(id string) (api.User, bool) {
	for _, user := range s.State.Users {
		if user.ID == id {
			return user, true
		}
	}
	return api.User{}, false
}

// ItemName returns the item's name or Missing.
func (s Snapshot) ItemName(id string) string {
	if item, ok := s.ItemByID(id); ok {
		return item.Name
	}
	return Missing
}

// UserName returns the user's full name, falling back to the username, or
// Missing.
func (s Snapshot) UserName(id string) string {
	user, ok := s.UserByID(id)
	if !ok {
		return Missing
	}
	if user.FullName != "" {
		return user.FullName
	}
	return user.Username
}

// Admins returns every admin account.
func (s Snapshot) Admins() []api.User {
	var out []api.User
	for _, user := range s.State.Users {
		if user.IsAdmin {
			out = append(out, user)
		}
	}
	return out
}

// PendingUsers returns accounts awaiting approval.
func (s Snapshot) PendingUsers() []api.User {
	var out []api.User
	for _, user := range s.State.Users {
		if user.Status == api.StatusPending {
			out = append(out, user)
		}
	}
	return out
}

// PendingBorrows returns borrow requests awaiting a decision, oldest first.
func (s Snapshot) PendingBorrows() []api.LogEntry {
	return s.logsWhere(func(l api.LogEntry) bool {
		return l.Action == api.ActionBorrow && l.Status == api.LogPending
	})
}

// ActiveBorrows returns approved borrows not yet returned, oldest first.
// When userID is non-empty only that user's borrows are returned.
func (s Snapshot) ActiveBorrows(userID string) []api.LogEntry {
	return s.logsWhere(func(l api.LogEntry) bool {
		return l.Action == api.ActionBorrow &&
			l.Status == api.LogApproved &&
			(userID == "" || l.UserID == userID)
	})
}

// UnreadFor returns the unread notifications addressed to user, either
// directly or through the admin audience.
func (s Snapshot) UnreadFor(user api.User) []api.Notification {
	var out []api.Notification
	for _, n := range s.State.Notifications {
		if n.Read {
			continue
		}
		if n.RecipientID == user.ID || (user.IsAdmin && n.ForAdmins()) {
			out = append(out, n)
		}
	}
	return out
}

func (s Snapshot) logsWhere(keep func(api.LogEntry) bool) []api.LogEntry {
	var out []api.LogEntry
	for _, entry := range s.State.Logs {
		if keep(entry) {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ParsedTimestamp().Before(out[j].ParsedTimestamp())
	})
	return out
}
