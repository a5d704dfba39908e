package state

import "github.com/OliLabSLMS-2025/OliLab.SLMS/internal/api"

// upsert replaces the element with v's id, or appends v when absent. The
// backend has confirmed v exists, so a missing local copy is simply stale.
func upsert[T any](list []T, v T, id func(T) string) []T {
	key := id(v)
	for i := range list {
		if id(list[i]) == key {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

// remove drops the element with the given id. Absent ids are a no-op.
func remove[T any](list []T, key string, id func(T) string) []T {
	for i := range list {
		if id(list[i]) == key {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func itemKey(v api.Item) string                 { return v.ID }
func userKey(v api.User) string                 { return v.ID }
func logKey(v api.LogEntry) string              { return v.ID }
func notificationKey(v api.Notification) string { return v.ID }
func suggestionKey(v api.Suggestion) string     { return v.ID }
func commentKey(v api.Comment) string           { return v.ID }

func cloneState(s api.AppState) api.AppState {
	return api.AppState{
		Items:         cloneSlice(s.Items),
		Users:         cloneSlice(s.Users),
		Logs:          cloneSlice(s.Logs),
		Notifications: cloneSlice(s.Notifications),
		Suggestions:   cloneSlice(s.Suggestions),
		Comments:      cloneSlice(s.Comments),
	}
}

func cloneSlice[T any](items []T) []T {
	if len(items) == 0 {
		return nil
	}
	dup := make([]T, len(items))
	copy(dup, items)
	return dup
}
