package cassandra_test

import (
	"context"
	"testing"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/franz/sparkify/internal/testinfra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesKeyspace(t *testing.T) {
	cfg := testinfra.RequireCassandra(t)
	cfg.Keyspace = "sparkify_session_test"
	ctx := context.Background()

	sess, err := cassandra.Open(ctx, cfg)
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "sparkify_session_test", sess.Keyspace())

	version, err := sess.ReleaseVersion(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	rows, err := sess.Select(ctx,
		"SELECT keyspace_name FROM system_schema.keyspaces WHERE keyspace_name = ?", cfg.Keyspace)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// a second Open against the existing keyspace is a no-op
	again, err := cassandra.Open(ctx, cfg)
	require.NoError(t, err)
	again.Close()

	sess.Close()
	sess.Close()
}

func TestExecSurfacesStatementErrors(t *testing.T) {
	cfg := testinfra.RequireCassandra(t)
	ctx := context.Background()

	sess, err := cassandra.Open(ctx, cfg)
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Exec(ctx, "INSERT INTO no_such_table (id) VALUES (?)", 1)
	assert.Error(t, err)
}
