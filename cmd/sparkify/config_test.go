package main

import (
	"testing"
	"time"

	"github.com/franz/sparkify/internal/tables"
	"github.com/spf13/viper"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	bindFlags(rootCmd.PersistentFlags())
	setDefaults()
	t.Cleanup(func() {
		viper.Reset()
		bindFlags(rootCmd.PersistentFlags())
		setDefaults()
	})
}

func TestCassandraConfigDefaults(t *testing.T) {
	resetConfig(t)

	cfg := cassandraConfig()
	if len(cfg.Hosts) != 1 || cfg.Hosts[0] != "127.0.0.1" {
		t.Errorf("expected default host 127.0.0.1, got %v", cfg.Hosts)
	}
	if cfg.Port != 9042 {
		t.Errorf("expected default port 9042, got %d", cfg.Port)
	}
	if cfg.Keyspace != "music_history" {
		t.Errorf("expected keyspace music_history, got %s", cfg.Keyspace)
	}
	if cfg.ConnectRetries != 1 {
		t.Errorf("expected a single connection attempt by default, got %d", cfg.ConnectRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestCassandraConfigOverrides(t *testing.T) {
	resetConfig(t)

	viper.Set("cassandra.hosts", "cass-1, cass-2,,cass-3")
	viper.Set("cassandra.port", 19042)
	viper.Set("cassandra.timeout", "3s")
	viper.Set("cassandra.consistency", "QUORUM")
	viper.Set("cassandra.compression", "snappy")
	viper.Set("cassandra.retries", 7)

	cfg := cassandraConfig()
	want := []string{"cass-1", "cass-2", "cass-3"}
	if len(cfg.Hosts) != len(want) {
		t.Fatalf("expected hosts %v, got %v", want, cfg.Hosts)
	}
	for i := range want {
		if cfg.Hosts[i] != want[i] {
			t.Errorf("expected hosts %v, got %v", want, cfg.Hosts)
		}
	}
	if cfg.Port != 19042 || cfg.Timeout != 3*time.Second || cfg.ConnectRetries != 7 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Consistency != "QUORUM" || cfg.Compression != "snappy" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestQueryParams(t *testing.T) {
	resetConfig(t)

	if got := queryParams(); got != tables.DefaultParams() {
		t.Errorf("expected default params, got %+v", got)
	}

	viper.Set("query.session-id", 23)
	viper.Set("query.item-in-session", 0)
	viper.Set("query.song", "Uprising")

	got := queryParams()
	if got.SessionID != 23 || got.ItemInSession != 0 || got.Song != "Uprising" {
		t.Errorf("overrides not applied: %+v", got)
	}
	if got.UserID != 10 {
		t.Errorf("expected untouched user id 10, got %d", got.UserID)
	}
}
