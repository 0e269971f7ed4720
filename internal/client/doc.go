// Package client is the HTTP client for the ainotesd jobs API.
//
// The CLI uses it for every command that talks to a running daemon. Error
// responses are decoded from the API error envelope into *Error so callers
// can branch on the machine-readable code.
package client
