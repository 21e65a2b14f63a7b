// Package client talks to the BrightRoot auth backend.
//
// # Overview
//
// Client is the transport-agnostic contract used by the session store:
// Login, Signup, Profile, Refresh and Close. Two implementations exist:
//
//  1. HTTPClient posts JSON to the backend endpoints (/login, /signup,
//     /profile, /token/refresh) through internal/httpclient, which adds
//     timeouts, retries for GETs and a circuit breaker.
//  2. MockClient keeps users in memory and mints signed JWTs locally. It
//     accepts any credentials for unknown emails, which is how the demo
//     build lets anyone in.
//
// # Error Handling
//
// Non-2xx responses surface as *APIError carrying the status, a top-level
// detail message and field-keyed validation messages. A 401 matches
// ErrUnauthorized via errors.Is. Transport failures and an open circuit
// breaker wrap ErrUnavailable; transport timeouts wrap ErrTimeout. Context
// cancellation is returned wrapped so errors.Is(err, context.DeadlineExceeded)
// keeps working.
package client
