// Package common contains small helpers and constants shared by the client
// packages.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound
	// requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// JSONContentType is the content type of every request and response body
	// exchanged with the auth backend.
	JSONContentType = "application/json"
)
