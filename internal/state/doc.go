// Package state holds the single in-memory mirror of the laboratory's server
// state and the synchronization protocol that keeps it consistent.
//
// # Overview
//
// Every screen reads from one Store. Views never talk to the backend
// directly: they call a Store operation, the Store makes exactly one backend
// call, and only the server's answer is written into the snapshot.
//
//	View                     Store                         Backend
//	┌──────────┐            ┌─────────────────────┐       ┌─────────┐
//	│ AddItem  │──────────→ │ Sync = Syncing      │       │         │
//	│          │            │ call ───────────────┼─────→ │ POST    │
//	│          │            │ patch(result) ←─────┼────── │ 201     │
//	│          │ ←───────── │ Sync = Synced, V+1  │       │         │
//	└──────────┘            └─────────────────────┘       └─────────┘
//
// # Snapshot
//
// Snapshot is a copy of the store at a point in time. It carries the
// AppState collections, the load status gating the application, the sync
// status of the latest round trip and a Version counter. Snapshot returns a
// fresh copy on every call so callers may keep or modify it freely.
//
// # Mutation protocol
//
// Each mutation runs three phases:
//
//  1. Sync becomes SyncSyncing and subscribers are notified.
//  2. One backend call is made. Nothing in State changes while it runs.
//  3. On success the server's result is patched in under a single lock,
//     Version increases by one and Sync becomes SyncSynced. On failure State
//     is left untouched, Sync becomes SyncError and the error is returned.
//
// Composite results (approving a borrow, recording a return, approving an
// item suggestion) update every affected collection in the same version, so
// no subscriber can observe a log that moved without its item.
//
// Concurrent mutations are not serialized. The last response to arrive
// wins; conflicting writes are rejected by the server with 409 and surface
// as api.RequestFailedError.
//
// # Loading
//
// Load fetches the entire state. Until it first succeeds the snapshot
// reports LoadPending or LoadFailed and the application shows a loading or
// retry screen. After that a failed reload only sets SyncError so the last
// good state stays visible. Every load publishes events.StateLoaded.
//
// # Events
//
// Mutations with side effects other components care about (sign-ups,
// account decisions, borrow and return activity) publish an events.Event
// after the change is committed. Events carry the resolved item, user and
// admin list from the post-patch snapshot.
//
// # Usage
//
//	store := state.New(client, bus, log)
//	if err := store.Load(ctx); err != nil {
//		// render retry screen, call store.Retry(ctx) on demand
//	}
//	unsubscribe := store.Subscribe(func(s state.Snapshot) { render(s) })
//	defer unsubscribe()
//
//	item, err := store.AddItem(ctx, api.ItemInput{Name: "Beaker", Category: "Glassware", TotalQuantity: 50})
package state
