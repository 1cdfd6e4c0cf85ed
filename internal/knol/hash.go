package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/conorfennell/cramly/internal/domain"
)

// Normalize joins both sides of a pair after cleaning each one. It trims
// whitespace, case-folds, normalizes line endings and collapses inner runs
// of spaces before joining.
func Normalize(p domain.Pair) string {
	folder := cases.Fold()
	normalizePart := func(part string) string {
		s := strings.ReplaceAll(part, "\r\n", "\n")
		s = folder.String(s)
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			lines[i] = strings.Join(strings.Fields(line), " ")
		}
		return strings.TrimSpace(strings.Join(lines, "\n"))
	}

	// The separator keeps "ab"+"c" and "a"+"bc" apart.
	return normalizePart(p.Front) + "\x1f" + normalizePart(p.Back)
}

// Hash returns the SHA-256 of the normalized pair as a hex string.
func Hash(p domain.Pair) string {
	sum := sha256.Sum256([]byte(Normalize(p)))
	return fmt.Sprintf("%x", sum)
}

// Dedupe drops pairs whose normalized content was already seen, keeping the
// first occurrence and the original order.
func Dedupe(pairs []domain.Pair) []domain.Pair {
	seen := make(map[string]bool, len(pairs))
	out := make([]domain.Pair, 0, len(pairs))
	for _, p := range pairs {
		h := Hash(p)
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, p)
	}
	return out
}
