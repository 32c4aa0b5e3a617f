package load

import (
	"context"
	"testing"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/franz/sparkify/internal/tables"
	"github.com/franz/sparkify/internal/testinfra"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAgainstCassandra(t *testing.T) {
	cfg := testinfra.RequireCassandra(t)
	cfg.Keyspace = "sparkify_load_test"
	ctx := context.Background()

	sess, err := cassandra.Open(ctx, cfg)
	require.NoError(t, err)
	defer sess.Close()

	fs := afero.NewMemMapFs()
	writeCombined(t, fs,
		play("Muse", "Uprising", 338, 4, 10, "230.5"),
		play("Muse", "Uprising", 338, 4, 10, "230.5"),
		play("Coldplay", "Yellow", 182, 3, 10, "268.64281"),
		play("Coldplay", "Clocks", 182, 1, 10, "307.51302"),
		play("The Black Keys", "All Hands Against His Own", 182, 2, 10, "196.91057"),
		play("The Black Keys", "All Hands Against His Own", 90, 0, 44, "196.91057"),
	)

	l := New(&Config{Session: sess, Fs: fs, Params: tables.DefaultParams()})
	defer func() {
		assert.NoError(t, l.Teardown(ctx))
	}()

	res, err := l.Run(ctx, combinedPath)
	require.NoError(t, err)

	s := res.Tables[0].Frame
	require.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"338", "4", "Muse", "Uprising", "230.5"}, s.Rows[0])

	u := res.Tables[1].Frame
	assert.Equal(t, []string{"1", "2", "3"}, u.Column("Item in Session"))

	l3 := res.Tables[2].Frame
	assert.Equal(t, []string{"10", "44"}, l3.Column("User ID"))

	// create is idempotent against live tables
	for _, tbl := range tables.All() {
		require.NoError(t, l.Create(ctx, tbl))
	}
	rows, err := sess.Select(ctx, "SELECT session_id FROM "+tables.SongInfoBySession)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}
