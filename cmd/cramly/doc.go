// Command cramly generates, edits, studies and exports flashcard decks. It
// can also serve the same operations over an HTTP API.
package main
