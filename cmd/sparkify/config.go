package main

import (
	"strings"
	"time"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/franz/sparkify/internal/frame"
	"github.com/franz/sparkify/internal/tables"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/viper"
)

// setDefaults registers the values of the reference run, so that a bare
// invocation needs no configuration at all.
func setDefaults() {
	cass := cassandra.DefaultConfig()
	params := tables.DefaultParams()

	viper.SetDefault("format", frame.FormatTable)
	viper.SetDefault("artifacts", "artifacts")

	viper.SetDefault("cassandra.timeout", cass.Timeout)
	viper.SetDefault("cassandra.connect-timeout", cass.ConnectTimeout)
	viper.SetDefault("cassandra.consistency", cass.Consistency)
	viper.SetDefault("cassandra.compression", "")
	viper.SetDefault("cassandra.username", "")
	viper.SetDefault("cassandra.password", "")
	viper.SetDefault("cassandra.retries", cass.ConnectRetries)

	viper.SetDefault("query.session-id", params.SessionID)
	viper.SetDefault("query.item-in-session", params.ItemInSession)
	viper.SetDefault("query.user-id", params.UserID)
	viper.SetDefault("query.user-session-id", params.UserSessionID)
	viper.SetDefault("query.song", params.Song)
}

// applyLogLevel sets console verbosity from config
func applyLogLevel() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// GetConfigString retrieves a string config value, falling back to
// defaultValue when unset or empty
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value, falling back to defaultValue
// when unset or zero
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigDuration retrieves a duration config value
func GetConfigDuration(key string, defaultValue time.Duration) time.Duration {
	val := viper.GetDuration(key)
	if val <= 0 {
		return defaultValue
	}
	return val
}

// cassandraConfig builds session settings from flags, env and config file
func cassandraConfig() cassandra.Config {
	def := cassandra.DefaultConfig()

	// environment values arrive as one comma-separated string
	var hosts []string
	for _, h := range viper.GetStringSlice("cassandra.hosts") {
		for _, part := range strings.Split(h, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hosts = append(hosts, part)
			}
		}
	}
	if len(hosts) == 0 {
		hosts = def.Hosts
	}
	return cassandra.Config{
		Hosts:          hosts,
		Port:           GetConfigInt("cassandra.port", def.Port),
		Keyspace:       GetConfigString("cassandra.keyspace", def.Keyspace),
		Timeout:        GetConfigDuration("cassandra.timeout", def.Timeout),
		ConnectTimeout: GetConfigDuration("cassandra.connect-timeout", def.ConnectTimeout),
		Consistency:    GetConfigString("cassandra.consistency", def.Consistency),
		Compression:    viper.GetString("cassandra.compression"),
		Username:       viper.GetString("cassandra.username"),
		Password:       viper.GetString("cassandra.password"),
		ConnectRetries: GetConfigInt("cassandra.retries", def.ConnectRetries),
	}
}

// queryParams returns the lookup values of the three canonical queries
func queryParams() tables.Params {
	def := tables.DefaultParams()
	return tables.Params{
		SessionID:     viper.GetInt("query.session-id"),
		ItemInSession: viper.GetInt("query.item-in-session"),
		UserID:        viper.GetInt("query.user-id"),
		UserSessionID: viper.GetInt("query.user-session-id"),
		Song:          GetConfigString("query.song", def.Song),
	}
}
