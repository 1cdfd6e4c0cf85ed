// Package llm provides the generation and refine collaborators over an
// OpenAI-compatible chat completion API.
//
// Requests ask for JSON-only responses and are retried with exponential
// backoff on timeouts, 408, 429 and 5xx responses. Decoded payloads are
// validated before they are handed back, so callers never see loosely
// typed model output. Identifiers are never taken from the model; callers
// assign their own when admitting pairs into a deck.
package llm
