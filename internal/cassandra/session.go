// Package cassandra owns the single cluster session used by a run.
package cassandra

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/franz/sparkify/internal/util"
	"github.com/gocql/gocql"
)

// DefaultKeyspace is the namespace holding the query tables
const DefaultKeyspace = "music_history"

var identRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,47}$`)

// Config holds cluster connection settings
type Config struct {
	Hosts          []string
	Port           int
	Keyspace       string
	Timeout        time.Duration // per-request timeout
	ConnectTimeout time.Duration
	Consistency    string // e.g. "ONE", "QUORUM"
	Compression    string // "" or "snappy"
	Username       string
	Password       string
	ConnectRetries int // session bootstrap attempts; 1 fails on the first error
}

// DefaultConfig returns settings for a local single-node cluster
func DefaultConfig() Config {
	return Config{
		Hosts:          []string{"127.0.0.1"},
		Port:           9042,
		Keyspace:       DefaultKeyspace,
		Timeout:        10 * time.Second,
		ConnectTimeout: 10 * time.Second,
		Consistency:    "ONE",
		ConnectRetries: 1,
	}
}

// Validate checks the settings that end up inside CQL text or the driver
func (c Config) Validate() error {
	if len(c.Hosts) == 0 {
		return fmt.Errorf("%w: at least one cassandra host is required", util.ErrInvalidConfig)
	}
	if !identRe.MatchString(c.Keyspace) {
		return fmt.Errorf("%w: invalid keyspace name %q", util.ErrInvalidConfig, c.Keyspace)
	}
	if _, err := gocql.ParseConsistencyWrapper(c.consistency()); err != nil {
		return fmt.Errorf("%w: %v", util.ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Compression) {
	case "", "none", "snappy":
	default:
		return fmt.Errorf("%w: unsupported compression %q", util.ErrInvalidConfig, c.Compression)
	}
	return nil
}

func (c Config) consistency() string {
	if c.Consistency == "" {
		return "ONE"
	}
	return strings.ToUpper(c.Consistency)
}

// ClusterConfig builds the driver configuration. keyspace may be empty for
// the bootstrap session.
func (c Config) ClusterConfig(keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(c.Hosts...)
	if c.Port > 0 {
		cluster.Port = c.Port
	}
	if c.Timeout > 0 {
		cluster.Timeout = c.Timeout
	}
	if c.ConnectTimeout > 0 {
		cluster.ConnectTimeout = c.ConnectTimeout
	}
	cluster.Keyspace = keyspace
	cluster.Consistency, _ = gocql.ParseConsistencyWrapper(c.consistency())
	if strings.EqualFold(c.Compression, "snappy") {
		cluster.Compressor = &gocql.SnappyCompressor{}
	}
	if c.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.Username,
			Password: c.Password,
		}
	}
	return cluster
}

// CreateKeyspaceCQL returns the keyspace bootstrap statement. Replication is
// SimpleStrategy with a factor of 1: a development setting.
func CreateKeyspaceCQL(keyspace string) string {
	return fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = "+
		"{'class': 'SimpleStrategy', 'replication_factor': 1}", keyspace)
}

// Session is an open, keyspace-bound cluster session
type Session struct {
	session  *gocql.Session
	keyspace string
}

// Open creates the keyspace if needed and returns a session bound to it.
// The caller must Close the session.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	boot, err := connect(ctx, cfg, "")
	if err != nil {
		return nil, err
	}
	err = boot.Query(CreateKeyspaceCQL(cfg.Keyspace)).WithContext(ctx).Exec()
	boot.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace %s: %w", cfg.Keyspace, err)
	}
	util.DebugLog("Keyspace %s ready", cfg.Keyspace)

	sess, err := connect(ctx, cfg, cfg.Keyspace)
	if err != nil {
		return nil, err
	}
	return &Session{session: sess, keyspace: cfg.Keyspace}, nil
}

func connect(ctx context.Context, cfg Config, keyspace string) (*gocql.Session, error) {
	cluster := cfg.ClusterConfig(keyspace)
	sess, err := util.RetryWithBackoff(ctx, util.ConnectRetryConfig(cfg.ConnectRetries), func() (*gocql.Session, error) {
		return cluster.CreateSession()
	}, fmt.Sprintf("connect(%s)", strings.Join(cfg.Hosts, ",")))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrUnavailable, strings.Join(cfg.Hosts, ","), err)
	}
	return sess, nil
}

// Keyspace returns the keyspace the session is bound to
func (s *Session) Keyspace() string {
	return s.keyspace
}

// Exec runs a statement that returns no rows
func (s *Session) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	return s.session.Query(stmt, values...).WithContext(ctx).Exec()
}

// Select runs a query and returns every row keyed by column name
func (s *Session) Select(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error) {
	iter := s.session.Query(stmt, values...).WithContext(ctx).Iter()
	rows, err := iter.SliceMap()
	if err != nil {
		iter.Close()
		return nil, err
	}
	return rows, iter.Close()
}

// ReleaseVersion returns the Cassandra version of the coordinator node
func (s *Session) ReleaseVersion(ctx context.Context) (string, error) {
	var version string
	err := s.session.Query("SELECT release_version FROM system.local").WithContext(ctx).Scan(&version)
	if err != nil {
		return "", err
	}
	return version, nil
}

// Close releases the session. Safe to call more than once.
func (s *Session) Close() {
	if s == nil || s.session == nil || s.session.Closed() {
		return
	}
	s.session.Close()
}
