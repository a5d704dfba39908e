// Package api provides an HTTP client for the laboratory inventory backend.
//
// # Overview
//
// The backend owns every entity (items, users, borrow/return logs,
// notifications, suggestions, comments). This package turns each backend
// operation into one typed method on [Client]. Every method issues exactly one
// HTTP request, except [Client.MarkNotificationsRead], which the backend does
// not implement yet and which is answered locally.
//
// # Files
//
//   - client.go: Client, the Backend interface, request plumbing
//   - types.go: entity and payload types mirroring the JSON schema
//   - errors.go: the error kinds callers branch on
//   - baseurl.go: backend address resolution
//   - validate.go: outbound payload checks
//
// # Base URL
//
// The backend listens on a fixed port on the same machine that serves the
// client. [ResolveBaseURL] derives the address from that host:
//
//	api.ResolveBaseURL("http://lab-pc:5173/") // http://lab-pc:3001/api
//	api.ResolveBaseURL("")                     // http://localhost:3001/api
//
// An explicit URL passed to [NewClient] wins over both.
//
// # Error Kinds
//
// Callers distinguish three failures with errors.Is / errors.As:
//
//   - [ConnectionUnavailableError] ([ErrConnectionUnavailable]): the request
//     never got an HTTP answer. Carries the base URL that was tried.
//   - [RequestFailedError] ([ErrRequestFailed]): the backend answered with a
//     non-2xx status. Message comes from the JSON body ("message" or
//     "error"), then the raw body, then "HTTP error <status>".
//   - [ValidationError] ([ErrValidation]): the payload was rejected locally
//     and nothing was sent.
//
// A cancelled context is returned as the context error, not as a connection
// failure.
//
// # What The Client Does Not Do
//
// No retries, no caching, no batching. The default transport has no timeout;
// [WithTimeout] sets one when the caller wants it.
package api
