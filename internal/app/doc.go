// Package app is the composition root of the OliLab terminal client.
//
// # Startup
//
// Run wires the packages together in this order:
//
//  1. Load dotenv files, then config.toml, then environment overrides
//  2. Open the zerolog file logger (the TUI owns the terminal)
//  3. Load display preferences
//  4. Resolve the backend base URL and build the api.Client
//  5. Create the event bus and the state.Store
//  6. Create the session.Guard and restore any persisted session
//  7. Attach the notification dispatcher to the bus
//  8. Start the background refresher
//  9. Run the TUI until the user quits or the context is cancelled
//
// The initial full-state load is issued by the UI so the loading and retry
// screens can show progress.
//
// # Refreshing
//
// StartRefresher reloads the store at RefreshInterval so changes made by
// other clients show up. While the backend is unreachable the delay doubles
// per consecutive failure, capped at 30 seconds. Other failures keep the
// normal cadence. A zero interval disables refreshing.
//
// # Errors
//
// Config, log and client initialization failures are returned from Run.
// Everything after startup is recoverable: failed loads and mutations are
// reflected in the store's sync status and logged.
package app
