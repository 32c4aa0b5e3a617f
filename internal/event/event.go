// Package event decodes raw song-play event rows and defines the combined
// record written by the flattener.
package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingColumn is returned when a raw header lacks a required column
	ErrMissingColumn = errors.New("missing required column")

	// ErrShortRow is returned when a raw row has fewer fields than the layout needs
	ErrShortRow = errors.New("row too short")
)

// Combined column names, in output order.
const (
	ColArtist        = "artist"
	ColFirstName     = "firstName"
	ColGender        = "gender"
	ColItemInSession = "itemInSession"
	ColLastName      = "lastName"
	ColLength        = "length"
	ColLevel         = "level"
	ColLocation      = "location"
	ColSessionID     = "sessionId"
	ColSong          = "song"
	ColUserID        = "userId"
)

// Columns is the header of the combined file.
var Columns = []string{
	ColArtist,
	ColFirstName,
	ColGender,
	ColItemInSession,
	ColLastName,
	ColLength,
	ColLevel,
	ColLocation,
	ColSessionID,
	ColSong,
	ColUserID,
}

// RawPositions are the raw event-log indices of Columns, in the same order.
// The full raw layout is artist, auth, firstName, gender, itemInSession,
// lastName, length, level, location, method, page, registration, sessionId,
// song, status, ts, userId.
var RawPositions = []int{0, 2, 3, 4, 5, 6, 7, 8, 12, 13, 16}

// Combined is one denormalized play event.
type Combined struct {
	Artist        string
	FirstName     string
	Gender        string
	ItemInSession string
	LastName      string
	Length        string
	Level         string
	Location      string
	SessionID     string
	Song          string
	UserID        string
}

// Values returns the record's fields in Columns order.
func (c Combined) Values() []string {
	return []string{
		c.Artist,
		c.FirstName,
		c.Gender,
		c.ItemInSession,
		c.LastName,
		c.Length,
		c.Level,
		c.Location,
		c.SessionID,
		c.Song,
		c.UserID,
	}
}

// FromValues builds a Combined from fields in Columns order.
func FromValues(v []string) (Combined, error) {
	if len(v) < len(Columns) {
		return Combined{}, fmt.Errorf("%w: got %d fields, want %d", ErrShortRow, len(v), len(Columns))
	}
	return Combined{
		Artist:        v[0],
		FirstName:     v[1],
		Gender:        v[2],
		ItemInSession: v[3],
		LastName:      v[4],
		Length:        v[5],
		Level:         v[6],
		Location:      v[7],
		SessionID:     v[8],
		Song:          v[9],
		UserID:        v[10],
	}, nil
}

// Layout maps each combined column to its position in a raw row.
type Layout struct {
	positions []int
	width     int
}

// PositionalLayout is the fixed raw index mapping of the event-log export.
func PositionalLayout() *Layout {
	pos := make([]int, len(RawPositions))
	copy(pos, RawPositions)
	return &Layout{positions: pos, width: RawPositions[len(RawPositions)-1] + 1}
}

// byteOrderMark is the UTF-8 encoded BOM some exporters put before the header
const byteOrderMark = "\ufeff"

// LayoutFromHeader resolves the combined columns by name in a raw header.
// Names are matched case-insensitively after trimming spaces and a leading
// byte order mark.
func LayoutFromHeader(header []string) (*Layout, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, byteOrderMark)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	l := &Layout{positions: make([]int, len(Columns))}
	var missing []string
	for i, col := range Columns {
		pos, ok := index[strings.ToLower(col)]
		if !ok {
			missing = append(missing, col)
			continue
		}
		l.positions[i] = pos
		if pos+1 > l.width {
			l.width = pos + 1
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return l, nil
}

// Dropped reports whether row is a non-song event, which is the case when its
// artist field is present and empty. No other field is looked at, so a
// dropped row may be shorter than the layout.
func (l *Layout) Dropped(row []string) bool {
	pos := l.positions[0]
	return pos < len(row) && row[pos] == ""
}

// Decode projects a raw row onto a Combined record.
func (l *Layout) Decode(row []string) (Combined, error) {
	if len(row) < l.width {
		return Combined{}, fmt.Errorf("%w: got %d fields, want at least %d", ErrShortRow, len(row), l.width)
	}
	v := make([]string, len(l.positions))
	for i, pos := range l.positions {
		v[i] = row[pos]
	}
	return FromValues(v)
}
