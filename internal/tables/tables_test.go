package tables

import (
	"strings"
	"testing"

	"github.com/franz/sparkify/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var muse = event.Combined{
	Artist:        "Muse",
	FirstName:     "Jacqueline",
	Gender:        "F",
	ItemInSession: "4",
	LastName:      "Lynch",
	Length:        "230.5",
	Level:         "paid",
	Location:      "Atlanta-Sandy Springs-Roswell, GA",
	SessionID:     "338",
	Song:          "Uprising",
	UserID:        "29",
}

func TestCreateCQL(t *testing.T) {
	tests := []struct {
		table Table
		want  string
	}{
		{
			SessionItem,
			"CREATE TABLE IF NOT EXISTS song_info_by_session (\n" +
				"\tsession_id int,\n\titem_in_session int,\n\tartist text,\n\tsong text,\n\tlength float,\n" +
				"\tPRIMARY KEY ((session_id), item_in_session)\n)",
		},
		{
			UserSession,
			"CREATE TABLE IF NOT EXISTS song_info_by_user (\n" +
				"\tuser_id int,\n\tsession_id int,\n\titem_in_session int,\n\tartist text,\n\tsong text,\n\tfirst_name text,\n\tlast_name text,\n" +
				"\tPRIMARY KEY ((user_id, session_id), item_in_session)\n) WITH CLUSTERING ORDER BY (item_in_session ASC)",
		},
		{
			SongListeners,
			"CREATE TABLE IF NOT EXISTS user_info_by_song (\n" +
				"\tsong text,\n\tuser_id int,\n\tfirst_name text,\n\tlast_name text,\n" +
				"\tPRIMARY KEY ((song), user_id)\n)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.table.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.table.CreateCQL())
		})
	}
}

func TestInsertCQLIsParameterized(t *testing.T) {
	for _, table := range All() {
		stmt := table.InsertCQL()
		assert.Equal(t, len(table.Columns), strings.Count(stmt, "?"), table.Name)
		assert.NotContains(t, stmt, "%", table.Name)
	}
	assert.Equal(t,
		"INSERT INTO user_info_by_song (song, user_id, first_name, last_name) VALUES (?, ?, ?, ?)",
		SongListeners.InsertCQL())
}

func TestSelectCQL(t *testing.T) {
	p := DefaultParams()

	assert.Equal(t,
		"SELECT session_id, item_in_session, artist, song, length FROM song_info_by_session WHERE session_id = ? AND item_in_session = ?",
		SessionItem.SelectCQL())
	assert.Equal(t, []interface{}{338, 4}, SessionItem.QueryArgs(p))

	assert.Contains(t, UserSession.SelectCQL(), "ORDER BY item_in_session ASC")
	assert.Equal(t, []interface{}{10, 182}, UserSession.QueryArgs(p))

	assert.NotContains(t, SongListeners.SelectCQL(), "ALLOW FILTERING")
	assert.Equal(t, []interface{}{"All Hands Against His Own"}, SongListeners.QueryArgs(p))
}

func TestProject(t *testing.T) {
	values, err := SessionItem.Project(muse)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{338, 4, "Muse", "Uprising", float32(230.5)}, values)

	values, err = UserSession.Project(muse)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{29, 338, 4, "Muse", "Uprising", "Jacqueline", "Lynch"}, values)

	values, err = SongListeners.Project(muse)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"Uprising", 29, "Jacqueline", "Lynch"}, values)
}

func TestProjectMalformed(t *testing.T) {
	bad := muse
	bad.Length = "n/a"
	_, err := SessionItem.Project(bad)
	assert.ErrorIs(t, err, event.ErrMalformedField)

	// length is not part of the other tables
	_, err = UserSession.Project(bad)
	assert.NoError(t, err)

	bad = muse
	bad.UserID = ""
	_, err = SongListeners.Project(bad)
	assert.ErrorIs(t, err, event.ErrMalformedField)

	// ids are stored as 32-bit CQL ints
	bad = muse
	bad.SessionID = "2147483648"
	_, err = SessionItem.Project(bad)
	assert.ErrorIs(t, err, event.ErrMalformedField)
	_, err = UserSession.Project(bad)
	assert.ErrorIs(t, err, event.ErrMalformedField)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"session_id"}, SessionItem.PartitionKey())
	assert.Equal(t, []string{"item_in_session"}, SessionItem.ClusteringKey())
	assert.Equal(t, []string{"user_id", "session_id"}, UserSession.PartitionKey())
	assert.Equal(t, []string{"item_in_session"}, UserSession.ClusteringKey())
	assert.Equal(t, []string{"song"}, SongListeners.PartitionKey())
	assert.Equal(t, []string{"user_id"}, SongListeners.ClusteringKey())

	for _, table := range All() {
		assert.Len(t, table.Headers, len(table.SelectColumns), table.Name)
		assert.Equal(t, "DROP TABLE IF EXISTS "+table.Name, table.DropCQL())
	}
}

func TestByName(t *testing.T) {
	table, ok := ByName(SongInfoByUser)
	require.True(t, ok)
	assert.Equal(t, 2, table.PartitionKeys)

	_, ok = ByName("songplays")
	assert.False(t, ok)
}

func TestTitle(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, "Session ID 338, item in session 4", SessionItem.Title(p))
	assert.Equal(t, "User ID 10, session ID 182", UserSession.Title(p))
	assert.Equal(t, `Users who listened to "All Hands Against His Own"`, SongListeners.Title(p))
}
