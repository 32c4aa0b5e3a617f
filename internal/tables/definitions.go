package tables

import (
	"fmt"

	"github.com/franz/sparkify/internal/event"
)

// Table names
const (
	SongInfoBySession = "song_info_by_session"
	SongInfoByUser    = "song_info_by_user"
	UserInfoBySong    = "user_info_by_song"
)

// SessionItem answers: artist, song and length heard at a given
// itemInSession of a given session.
var SessionItem = Table{
	Name:        SongInfoBySession,
	Description: "song played at a session item",
	Columns: []Column{
		{"session_id", "int"},
		{"item_in_session", "int"},
		{"artist", "text"},
		{"song", "text"},
		{"length", "float"},
	},
	PartitionKeys:  1,
	ClusteringKeys: 1,
	SelectColumns:  []string{"session_id", "item_in_session", "artist", "song", "length"},
	Headers:        []string{"Session Id", "Item in Session", "Artist", "Song", "Length"},
	project: func(c event.Combined) ([]interface{}, error) {
		session, err := event.ParseInt(event.ColSessionID, c.SessionID)
		if err != nil {
			return nil, err
		}
		item, err := event.ParseInt(event.ColItemInSession, c.ItemInSession)
		if err != nil {
			return nil, err
		}
		length, err := event.ParseLength(c.Length)
		if err != nil {
			return nil, err
		}
		return []interface{}{session, item, c.Artist, c.Song, length}, nil
	},
	where: "session_id = ? AND item_in_session = ?",
	args: func(p Params) []interface{} {
		return []interface{}{p.SessionID, p.ItemInSession}
	},
	title: func(p Params) string {
		return fmt.Sprintf("Session ID %d, item in session %d", p.SessionID, p.ItemInSession)
	},
}

// UserSession answers: artist, song and user name for every play of a
// user's session, in play order.
var UserSession = Table{
	Name:        SongInfoByUser,
	Description: "songs of a user session in play order",
	Columns: []Column{
		{"user_id", "int"},
		{"session_id", "int"},
		{"item_in_session", "int"},
		{"artist", "text"},
		{"song", "text"},
		{"first_name", "text"},
		{"last_name", "text"},
	},
	PartitionKeys:   2,
	ClusteringKeys:  1,
	ClusteringOrder: []string{Asc},
	SelectColumns:   []string{"artist", "song", "item_in_session", "first_name", "last_name"},
	Headers:         []string{"Artist", "Song", "Item in Session", "First Name", "Last Name"},
	project: func(c event.Combined) ([]interface{}, error) {
		user, err := event.ParseInt(event.ColUserID, c.UserID)
		if err != nil {
			return nil, err
		}
		session, err := event.ParseInt(event.ColSessionID, c.SessionID)
		if err != nil {
			return nil, err
		}
		item, err := event.ParseInt(event.ColItemInSession, c.ItemInSession)
		if err != nil {
			return nil, err
		}
		return []interface{}{user, session, item, c.Artist, c.Song, c.FirstName, c.LastName}, nil
	},
	where: "user_id = ? AND session_id = ? ORDER BY item_in_session ASC",
	args: func(p Params) []interface{} {
		return []interface{}{p.UserID, p.UserSessionID}
	},
	title: func(p Params) string {
		return fmt.Sprintf("User ID %d, session ID %d", p.UserID, p.UserSessionID)
	},
}

// SongListeners answers: every user who listened to a song, once per user.
var SongListeners = Table{
	Name:        UserInfoBySong,
	Description: "listeners of a song",
	Columns: []Column{
		{"song", "text"},
		{"user_id", "int"},
		{"first_name", "text"},
		{"last_name", "text"},
	},
	PartitionKeys:  1,
	ClusteringKeys: 1,
	SelectColumns:  []string{"song", "user_id", "first_name", "last_name"},
	Headers:        []string{"Song", "User ID", "First Name", "Last Name"},
	project: func(c event.Combined) ([]interface{}, error) {
		user, err := event.ParseInt(event.ColUserID, c.UserID)
		if err != nil {
			return nil, err
		}
		return []interface{}{c.Song, user, c.FirstName, c.LastName}, nil
	},
	// song is the partition key, so this is a direct partition read
	where: "song = ?",
	args: func(p Params) []interface{} {
		return []interface{}{p.Song}
	},
	title: func(p Params) string {
		return fmt.Sprintf("Users who listened to %q", p.Song)
	},
}

// All returns the query tables in load order
func All() []Table {
	return []Table{SessionItem, UserSession, SongListeners}
}

// ByName looks up a table definition
func ByName(name string) (Table, bool) {
	for _, t := range All() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
