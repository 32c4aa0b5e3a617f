package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/franz/sparkify/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string
	envFile string

	rootCmd = &cobra.Command{
		Use:   "sparkify",
		Short: "Sparkify song-play ETL - flatten event logs and serve them from Cassandra",
		Long: `sparkify flattens a directory of per-session song-play event files into a
single combined CSV, loads it into three query-shaped Cassandra tables,
prints the answer to each table's query and drops the tables again.

Running sparkify without a subcommand runs the whole pipeline.`,
		Version:       Version,
		RunE:          runRun,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()

	// Global flags
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./configs/sparkify.yaml)")
	pf.StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment (default is ./.env if present)")
	pf.String("db", "sparkify-state.db", "run ledger database file (empty disables the ledger)")
	pf.BoolP("verbose", "v", false, "verbose output")
	pf.BoolP("quiet", "q", false, "quiet output (errors only)")

	// Pipeline inputs and outputs
	pf.StringP("source", "s", "event_data", "directory of raw event files")
	pf.StringP("output", "o", "event_datafile_new.csv", "combined file to write")
	pf.Bool("positional", false, "decode raw rows by fixed column position instead of header names")
	pf.String("parquet-out", "", "also export the combined records to this Parquet file")
	pf.Bool("single-pass", false, "fill all query tables from one read of the combined file")
	pf.StringP("format", "f", "table", "result format: table, json or yaml")

	// Cassandra
	pf.StringSlice("cassandra-hosts", []string{"127.0.0.1"}, "cassandra contact points")
	pf.Int("cassandra-port", 9042, "cassandra native protocol port")
	pf.String("keyspace", "music_history", "keyspace holding the query tables")

	bindFlags(pf)
	setDefaults()
}

// bindFlags binds the persistent flags to their config keys
func bindFlags(fs *pflag.FlagSet) {
	for key, flag := range map[string]string{
		"db":                 "db",
		"verbose":            "verbose",
		"quiet":              "quiet",
		"source":             "source",
		"output":             "output",
		"positional":         "positional",
		"parquet-out":        "parquet-out",
		"single-pass":        "single-pass",
		"format":             "format",
		"cassandra.hosts":    "cassandra-hosts",
		"cassandra.port":     "cassandra-port",
		"cassandra.keyspace": "keyspace",
	} {
		viper.BindPFlag(key, fs.Lookup(flag))
	}
}

func initConfig() {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			util.WarnLog("Failed to load env file %s: %v", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		godotenv.Load() //nolint:errcheck
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("sparkify")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match, e.g. SPARKIFY_CASSANDRA_HOSTS
	viper.SetEnvPrefix("SPARKIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
