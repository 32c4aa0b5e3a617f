package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedField is returned when a numeric column does not parse
var ErrMalformedField = errors.New("malformed field")

// ParseInt converts an id column (sessionId, userId, itemInSession). The
// value must fit the 32-bit CQL int the tables store it in.
func ParseInt(column, raw string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %s=%q is out of range for a 32-bit integer", ErrMalformedField, column, raw)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrMalformedField, column, raw)
	}
	return int(n), nil
}

// ParseLength converts the song length to the 32-bit float stored in CQL.
func ParseLength(raw string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrMalformedField, ColLength, raw)
	}
	return float32(f), nil
}

// Typed is a Combined record with its numeric columns coerced.
type Typed struct {
	Combined
	ItemInSessionN int
	LengthN        float32
	SessionIDN     int
	UserIDN        int
}

// Typed coerces every numeric column, failing on the first malformed one.
func (c Combined) Typed() (Typed, error) {
	t := Typed{Combined: c}
	var err error
	if t.SessionIDN, err = ParseInt(ColSessionID, c.SessionID); err != nil {
		return t, err
	}
	if t.ItemInSessionN, err = ParseInt(ColItemInSession, c.ItemInSession); err != nil {
		return t, err
	}
	if t.UserIDN, err = ParseInt(ColUserID, c.UserID); err != nil {
		return t, err
	}
	if t.LengthN, err = ParseLength(c.Length); err != nil {
		return t, err
	}
	return t, nil
}
