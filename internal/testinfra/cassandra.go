// Package testinfra starts throwaway infrastructure for integration tests.
package testinfra

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/testcontainers/testcontainers-go"
	tccassandra "github.com/testcontainers/testcontainers-go/modules/cassandra"
)

const (
	CassandraImage = "cassandra:4.1.3"

	// EnvCassandra points the integration tests at an existing node (host:port)
	EnvCassandra = "SPARKIFY_TEST_CASSANDRA"
)

type CassandraContainer struct {
	*tccassandra.CassandraContainer
	Host string // host:port of the native protocol endpoint
}

func StartCassandra(ctx context.Context) (*CassandraContainer, error) {
	ctr, err := tccassandra.Run(ctx, CassandraImage)
	if err != nil {
		return nil, fmt.Errorf("start cassandra: %w", err)
	}

	host, err := ctr.ConnectionHost(ctx)
	if err != nil {
		testcontainers.TerminateContainer(ctr) //nolint:errcheck
		return nil, fmt.Errorf("get connection host: %w", err)
	}
	return &CassandraContainer{CassandraContainer: ctr, Host: host}, nil
}

var (
	containerOnce sync.Once
	containerHost string
	containerErr  error
)

func getOrStartCassandra() (string, error) {
	containerOnce.Do(func() {
		ctr, err := StartCassandra(context.Background())
		if err != nil {
			containerErr = err
			return
		}
		containerHost = ctr.Host
	})
	return containerHost, containerErr
}

// CassandraConfig turns a host:port address into session settings
func CassandraConfig(addr string) (cassandra.Config, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return cassandra.Config{}, fmt.Errorf("invalid cassandra address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return cassandra.Config{}, fmt.Errorf("invalid cassandra port %q: %w", portStr, err)
	}

	cfg := cassandra.DefaultConfig()
	cfg.Hosts = []string{host}
	cfg.Port = port
	cfg.Timeout = 30 * time.Second
	cfg.ConnectTimeout = 30 * time.Second
	cfg.ConnectRetries = 5
	return cfg, nil
}

// RequireCassandra returns session settings for a test node.
// Priority: SPARKIFY_TEST_CASSANDRA > auto-started container > skip test.
func RequireCassandra(t *testing.T) cassandra.Config {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	addr := os.Getenv(EnvCassandra)
	if addr == "" {
		var err error
		addr, err = getOrStartCassandra()
		if err != nil {
			t.Skipf("%s not set and Docker unavailable: %v", EnvCassandra, err)
		}
	}

	cfg, err := CassandraConfig(addr)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return cfg
}
