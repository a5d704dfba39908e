package state

import (
	"context"

	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"
	"github.com/OliLabSLMS-2025/OliLab.SLMS/internal/events"
)

// Items

// AddItem creates an item and appends the server's copy.
func (s *Store) AddItem(ctx context.Context, in api.ItemInput) (api.Item, error) {
	item, _, err := mutate(ctx, s, "add item",
		func(ctx context.Context) (api.Item, error) { return s.backend.AddItem(ctx, in) },
		func(st *api.AppState, item api.Item) { st.Items = upsert(st.Items, item, itemKey) },
	)
	return item, err
}

// EditItem updates an item in place.
func (s *Store) EditItem(ctx context.Context, id string, in api.ItemInput) (api.Item, error) {
	item, _, err := mutate(ctx, s, "edit item",
		func(ctx context.Context) (api.Item, error) { return s.backend.EditItem(ctx, id, in) },
		func(st *api.AppState, item api.Item) { st.Items = upsert(st.Items, item, itemKey) },
	)
	return item, err
}

// DeleteItem removes an item. Deleting an id that is already gone leaves the
// snapshot unchanged.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	_, _, err := mutate(ctx, s, "delete item",
		func(ctx context.Context) (api.DeletedID, error) { return s.backend.DeleteItem(ctx, id) },
		func(st *api.AppState, del api.DeletedID) { st.Items = remove(st.Items, deletedKey(del, id), itemKey) },
	)
	return err
}

// ImportItems creates items in bulk.
func (s *Store) ImportItems(ctx context.Context, in []api.ItemInput) ([]api.Item, error) {
	items, _, err := mutate(ctx, s, "import items",
		func(ctx context.Context) ([]api.Item, error) { return s.backend.ImportItems(ctx, in) },
		func(st *api.AppState, items []api.Item) {
			for _, item := range items {
				st.Items = upsert(st.Items, item, itemKey)
			}
		},
	)
	return items, err
}

// Users

// CreateUser signs up a user together with the admin notification the
// server creates for it.
func (s *Store) CreateUser(ctx context.Context, in api.UserInput) (api.User, error) {
	res, snap, err := mutate(ctx, s, "create user",
		func(ctx context.Context) (api.CreatedUser, error) { return s.backend.CreateUser(ctx, in) },
		func(st *api.AppState, res api.CreatedUser) {
			st.Users = upsert(st.Users, res.NewUser, userKey)
			st.Notifications = upsert(st.Notifications, res.NewNotification, notificationKey)
		},
	)
	if err != nil {
		return api.User{}, err
	}
	s.publish(events.Event{
		Kind:         events.UserCreated,
		User:         &res.NewUser,
		Notification: &res.NewNotification,
		Admins:       snap.Admins(),
	})
	return res.NewUser, nil
}

// EditUser updates a user's profile.
func (s *Store) EditUser(ctx context.Context, id string, in api.UserInput) (api.User, error) {
	user, _, err := mutate(ctx, s, "edit user",
		func(ctx context.Context) (api.User, error) { return s.backend.EditUser(ctx, id, in) },
		func(st *api.AppState, user api.User) { st.Users = upsert(st.Users, user, userKey) },
	)
	return user, err
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	_, _, err := mutate(ctx, s, "delete user",
		func(ctx context.Context) (api.DeletedID, error) { return s.backend.DeleteUser(ctx, id) },
		func(st *api.AppState, del api.DeletedID) { st.Users = remove(st.Users, deletedKey(del, id), userKey) },
	)
	return err
}

// ApproveUser approves a pending account.
func (s *Store) ApproveUser(ctx context.Context, id string) (api.User, error) {
	return s.setUserStatus(ctx, "approve user", events.UserApproved, func(ctx context.Context) (api.User, error) {
		return s.backend.ApproveUser(ctx, id)
	})
}

// DenyUser denies a pending account.
func (s *Store) DenyUser(ctx context.Context, id string) (api.User, error) {
	return s.setUserStatus(ctx, "deny user", events.UserDenied, func(ctx context.Context) (api.User, error) {
		return s.backend.DenyUser(ctx, id)
	})
}

func (s *Store) setUserStatus(ctx context.Context, op string, kind events.Kind, call func(context.Context) (api.User, error)) (api.User, error) {
	user, snap, err := mutate(ctx, s, op, call,
		func(st *api.AppState, user api.User) { st.Users = upsert(st.Users, user, userKey) },
	)
	if err != nil {
		return api.User{}, err
	}
	s.publish(events.Event{Kind: kind, User: &user, Admins: snap.Admins()})
	return user, nil
}

// Borrowing

// RequestBorrow files a borrow request and appends the new log and the
// admin notification.
func (s *Store) RequestBorrow(ctx context.Context, in api.BorrowRequest) (api.LogEntry, error) {
	res, snap, err := mutate(ctx, s, "request borrow",
		func(ctx context.Context) (api.BorrowCreated, error) { return s.backend.RequestBorrow(ctx, in) },
		func(st *api.AppState, res api.BorrowCreated) {
			st.Logs = upsert(st.Logs, res.NewLog, logKey)
			st.Notifications = upsert(st.Notifications, res.NewNotification, notificationKey)
		},
	)
	if err != nil {
		return api.LogEntry{}, err
	}
	s.publish(logEvent(events.BorrowRequested, snap, res.NewLog, &res.NewNotification))
	return res.NewLog, nil
}

// ApproveBorrow approves a pending request. The updated log and the item
// with its reduced availability land in the same snapshot version.
func (s *Store) ApproveBorrow(ctx context.Context, logID string) (api.LogEntry, error) {
	res, snap, err := mutate(ctx, s, "approve borrow",
		func(ctx context.Context) (api.BorrowApproved, error) { return s.backend.ApproveBorrow(ctx, logID) },
		func(st *api.AppState, res api.BorrowApproved) {
			st.Logs = upsert(st.Logs, res.UpdatedLog, logKey)
			st.Items = upsert(st.Items, res.UpdatedItem, itemKey)
		},
	)
	if err != nil {
		return api.LogEntry{}, err
	}
	s.publish(logEvent(events.BorrowApproved, snap, res.UpdatedLog, nil))
	return res.UpdatedLog, nil
}

// DenyBorrow denies a pending request.
func (s *Store) DenyBorrow(ctx context.Context, logID, reason string) (api.LogEntry, error) {
	entry, snap, err := mutate(ctx, s, "deny borrow",
		func(ctx context.Context) (api.LogEntry, error) { return s.backend.DenyBorrow(ctx, logID, reason) },
		func(st *api.AppState, entry api.LogEntry) { st.Logs = upsert(st.Logs, entry, logKey) },
	)
	if err != nil {
		return api.LogEntry{}, err
	}
	s.publish(logEvent(events.BorrowDenied, snap, entry, nil))
	return entry, nil
}

// ReturnItem records a return: the new return log, the closed borrow log and
// the item with restored availability are applied as one change.
func (s *Store) ReturnItem(ctx context.Context, borrow api.LogEntry, adminNotes string) (api.LogEntry, error) {
	res, _, err := mutate(ctx, s, "return item",
		func(ctx context.Context) (api.ItemReturned, error) {
			return s.backend.ReturnItem(ctx, api.ReturnRequest{BorrowLog: borrow, AdminNotes: adminNotes})
		},
		func(st *api.AppState, res api.ItemReturned) {
			st.Logs = upsert(st.Logs, res.UpdatedBorrowLog, logKey)
			st.Logs = upsert(st.Logs, res.ReturnLog, logKey)
			st.Items = upsert(st.Items, res.UpdatedItem, itemKey)
		},
	)
	return res.ReturnLog, err
}

// RequestReturn flags an approved borrow as ready to return.
func (s *Store) RequestReturn(ctx context.Context, logID string) (api.LogEntry, error) {
	res, snap, err := mutate(ctx, s, "request return",
		func(ctx context.Context) (api.ReturnRequested, error) { return s.backend.RequestReturn(ctx, logID) },
		func(st *api.AppState, res api.ReturnRequested) {
			st.Logs = upsert(st.Logs, res.UpdatedLog, logKey)
			st.Notifications = upsert(st.Notifications, res.NewNotification, notificationKey)
		},
	)
	if err != nil {
		return api.LogEntry{}, err
	}
	s.publish(logEvent(events.ReturnRequested, snap, res.UpdatedLog, &res.NewNotification))
	return res.UpdatedLog, nil
}

// Notifications

// MarkNotificationsRead flags the confirmed ids as read. Unknown ids are
// ignored.
func (s *Store) MarkNotificationsRead(ctx context.Context, ids []string) error {
	_, _, err := mutate(ctx, s, "mark notifications read",
		func(ctx context.Context) ([]string, error) { return s.backend.MarkNotificationsRead(ctx, ids) },
		func(st *api.AppState, confirmed []string) {
			read := make(map[string]struct{}, len(confirmed))
			for _, id := range confirmed {
				read[id] = struct{}{}
			}
			for i, n := range st.Notifications {
				if _, ok := read[n.ID]; ok {
					st.Notifications[i].Read = true
				}
			}
		},
	)
	return err
}

// Suggestions

// AddSuggestion submits a suggestion.
func (s *Store) AddSuggestion(ctx context.Context, in api.SuggestionInput) (api.Suggestion, error) {
	sug, _, err := mutate(ctx, s, "add suggestion",
		func(ctx context.Context) (api.Suggestion, error) { return s.backend.AddSuggestion(ctx, in) },
		func(st *api.AppState, sug api.Suggestion) { st.Suggestions = upsert(st.Suggestions, sug, suggestionKey) },
	)
	return sug, err
}

// ApproveItemSuggestion approves an item suggestion and appends the item the
// server created from it.
func (s *Store) ApproveItemSuggestion(ctx context.Context, id string, in api.ItemApproval) (api.Item, error) {
	res, _, err := mutate(ctx, s, "approve item suggestion",
		func(ctx context.Context) (api.ItemSuggestionApproved, error) {
			return s.backend.ApproveItemSuggestion(ctx, id, in)
		},
		func(st *api.AppState, res api.ItemSuggestionApproved) {
			st.Suggestions = upsert(st.Suggestions, res.UpdatedSuggestion, suggestionKey)
			st.Items = upsert(st.Items, res.NewItem, itemKey)
		},
	)
	return res.NewItem, err
}

// ApproveFeatureSuggestion approves a feature suggestion.
func (s *Store) ApproveFeatureSuggestion(ctx context.Context, id string) (api.Suggestion, error) {
	sug, _, err := mutate(ctx, s, "approve feature suggestion",
		func(ctx context.Context) (api.Suggestion, error) { return s.backend.ApproveFeatureSuggestion(ctx, id) },
		func(st *api.AppState, sug api.Suggestion) { st.Suggestions = upsert(st.Suggestions, sug, suggestionKey) },
	)
	return sug, err
}

// DenySuggestion denies a suggestion and appends the comment carrying the
// reason.
func (s *Store) DenySuggestion(ctx context.Context, id string, in api.SuggestionDenial) (api.Suggestion, error) {
	res, _, err := mutate(ctx, s, "deny suggestion",
		func(ctx context.Context) (api.SuggestionDenied, error) { return s.backend.DenySuggestion(ctx, id, in) },
		func(st *api.AppState, res api.SuggestionDenied) {
			st.Suggestions = upsert(st.Suggestions, res.UpdatedSuggestion, suggestionKey)
			st.Comments = upsert(st.Comments, res.NewComment, commentKey)
		},
	)
	return res.UpdatedSuggestion, err
}

// AddComment appends a comment.
func (s *Store) AddComment(ctx context.Context, in api.CommentInput) (api.Comment, error) {
	c, _, err := mutate(ctx, s, "add comment",
		func(ctx context.Context) (api.Comment, error) { return s.backend.AddComment(ctx, in) },
		func(st *api.AppState, c api.Comment) { st.Comments = upsert(st.Comments, c, commentKey) },
	)
	return c, err
}

func logEvent(kind events.Kind, snap Snapshot, entry api.LogEntry, note *api.Notification) events.Event {
	e := events.Event{
		Kind:         kind,
		Log:          &entry,
		Notification: note,
		Admins:       snap.Admins(),
	}
	if item, ok := snap.ItemByID(entry.ItemID); ok {
		e.Item = &item
	}
	if user, ok := snap.UserByID(entry.UserID); ok {
		e.User = &user
	}
	return e
}

func deletedKey(del api.DeletedID, requested string) string {
	if del.ID != "" {
		return del.ID
	}
	return requested
}
