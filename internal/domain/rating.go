package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRating is returned for ratings outside Again..Easy.
var ErrInvalidRating = errors.New("domain: invalid rating")

// Rating is the user's response to a card review. The zero value means the
// card has not been rated.
type Rating int

const (
	Again Rating = iota + 1
	Hard
	Good
	Easy
)

var (
	ratingNames  = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}
	ratingByName = map[string]Rating{
		"again": Again,
		"hard":  Hard,
		"good":  Good,
		"easy":  Easy,
	}
)

// ParseRating accepts a rating name (case-insensitive) or its digit 1-4.
func ParseRating(s string) (Rating, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if r, ok := ratingByName[s]; ok {
		return r, nil
	}
	if len(s) == 1 && s[0] >= '1' && s[0] <= '4' {
		return Rating(s[0] - '0'), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidRating, s)
}

// String returns the lowercase name of the rating, "" for unrated.
func (r Rating) String() string {
	if r.IsValid() {
		return ratingNames[r]
	}
	if r == 0 {
		return ""
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// IsValid reports whether r is one of Again, Hard, Good or Easy.
func (r Rating) IsValid() bool {
	return r >= Again && r <= Easy
}

// Retires reports whether the rating removes a card from the current pass.
func (r Rating) Retires() bool {
	return r == Good || r == Easy
}

// MarshalText implements encoding.TextMarshaler. Unrated marshals as "".
func (r Rating) MarshalText() ([]byte, error) {
	if r == 0 {
		return []byte{}, nil
	}
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRating, int(r))
	}
	return []byte(ratingNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rating) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = 0
		return nil
	}
	v, err := ParseRating(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// MarshalJSON encodes the rating as a JSON string.
func (r Rating) MarshalJSON() ([]byte, error) {
	text, err := r.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON expects a JSON string or null.
func (r *Rating) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRating, data)
	}
	return r.UnmarshalText([]byte(s))
}
