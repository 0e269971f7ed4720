// Package gemini is a small client for the Gemini generateContent endpoint.
//
// Each call is a single user turn. Non-2xx responses surface as *StatusError,
// which matches services.ErrLLMRequest. Retries are off unless MaxAttempts is
// raised above one.
package gemini
