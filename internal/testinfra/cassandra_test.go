package testinfra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCassandraConfig(t *testing.T) {
	cfg, err := CassandraConfig("localhost:32771")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost"}, cfg.Hosts)
	assert.Equal(t, 32771, cfg.Port)
	assert.Equal(t, "music_history", cfg.Keyspace)
	assert.NoError(t, cfg.Validate())

	_, err = CassandraConfig("localhost")
	assert.Error(t, err)

	_, err = CassandraConfig("localhost:cql")
	assert.Error(t, err)
}
