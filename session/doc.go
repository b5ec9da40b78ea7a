// Package session manages the client-side session of the admin client.
//
// The access token lives only in memory (Store). The refresh credential is an
// httpOnly cookie the backend sets; it travels only with the identity client
// used for refresh and logout. Refresh coalesces concurrent callers into one
// network call, Gate recovers a session before a protected view is entered,
// Transport attaches the bearer token to outbound API calls and heals a 401
// with exactly one refresh-and-retry, and CallbackHandler completes the
// Google login redirect.
package session
