package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aweris/stacsync"
	"github.com/aweris/stacsync/internal/remote"
)

var rootCmd = &cobra.Command{
	Use:   "stacsync",
	Short: "STAC catalog transaction CLI",
	Long: "CLI for creating, replacing and deleting STAC items in a catalog " +
		"that implements the transaction extension.",
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/stacsync/config.yaml)")
	flags.String("catalog-url", stacsync.DefaultCatalogURL, "catalog base URL")
	flags.String("token", "", "bearer token sent with every request")
	flags.String("collection", "", "target collection id")
	flags.Bool("insecure", true, "skip TLS certificate verification")
	flags.Duration("timeout", remote.DefaultTimeout, "timeout of a single HTTP attempt")
	flags.Int("max-attempts", remote.DefaultMaxAttempts, "attempts per transaction on transport failures")
	flags.Int("concurrency", 4, "transactions in flight")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.Int("log-max-size-mb", 100, "rotate the log file at this size")
	flags.Int("log-max-backups", 5, "rotated log files to keep")
	flags.Int("log-max-age-days", 30, "days to keep rotated log files")

	for key, flag := range map[string]string{
		"catalog_url":      "catalog-url",
		"token":            "token",
		"collection":       "collection",
		"insecure":         "insecure",
		"timeout":          "timeout",
		"max_attempts":     "max-attempts",
		"concurrency":      "concurrency",
		"log_level":        "log-level",
		"log_file":         "log-file",
		"log_max_size_mb":  "log-max-size-mb",
		"log_max_backups":  "log-max-backups",
		"log_max_age_days": "log-max-age-days",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("STACSYNC")
	viper.AutomaticEnv()
	viper.SetDefault("on_conflict", string(conflictFail))

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stacsync")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "stacsync")
	}
	return ".stacsync"
}

// settings is the resolved configuration of one invocation.
type settings struct {
	CatalogURL  string
	Token       string
	Collection  string
	Insecure    bool
	Timeout     time.Duration
	MaxAttempts int
	Concurrency int
	Log         logSettings
}

func loadSettings() (settings, error) {
	s := settings{
		CatalogURL:  viper.GetString("catalog_url"),
		Token:       viper.GetString("token"),
		Collection:  viper.GetString("collection"),
		Insecure:    viper.GetBool("insecure"),
		Timeout:     viper.GetDuration("timeout"),
		MaxAttempts: viper.GetInt("max_attempts"),
		Concurrency: viper.GetInt("concurrency"),
		Log: logSettings{
			Level:      viper.GetString("log_level"),
			File:       viper.GetString("log_file"),
			MaxSizeMB:  viper.GetInt("log_max_size_mb"),
			MaxBackups: viper.GetInt("log_max_backups"),
			MaxAgeDays: viper.GetInt("log_max_age_days"),
		},
	}
	if s.Token == "" {
		return s, fmt.Errorf("token is required (--token or STACSYNC_TOKEN)")
	}
	if s.Collection == "" {
		return s, fmt.Errorf("collection is required (--collection or STACSYNC_COLLECTION)")
	}
	if s.Concurrency < 1 {
		return s, fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	return s, nil
}
