package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrehanahmed/IMAP-Migrate/model"
)

// Options tunes the batch pipeline.
type Options struct {
	BatchSize           int    `mapstructure:"batch_size"`
	SleepBetweenSeconds int    `mapstructure:"sleep_between_seconds"`
	ArchivePrefix       string `mapstructure:"archive_prefix"`
	BackupDir           string `mapstructure:"backup_dir"`
}

// SleepBetween returns the inter-batch pause.
func (o Options) SleepBetween() time.Duration {
	return time.Duration(o.SleepBetweenSeconds) * time.Second
}

// Config captures everything needed to run a migration: both endpoints, the
// ledger location, pipeline options and the CLI flags.
type Config struct {
	Source      model.Endpoint `mapstructure:"source"`
	Destination model.Endpoint `mapstructure:"destination"`
	Database    Database       `mapstructure:"database"`
	Options     Options        `mapstructure:"options"`

	DryRun      bool
	LogLevel    string
	MappingFile string
	ExcludeFile string
}

type Database struct {
	Path string `mapstructure:"path"`
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("config", "", "Path to the YAML/JSON config file")
	flags.String("mapping-file", "", "Optional mailbox name mapping file (YAML or JSON)")
	flags.String("exclude-file", "", "Optional file listing mailboxes to skip, one per line")
	flags.Bool("dry-run", false, "Rehearse the migration without appending, moving or recording anything")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")

	return cmd.MarkFlagRequired("config")
}

// Load converts the parsed Cobra flags plus the config file into a Config.
// A .env file in the working directory is loaded first so the password
// environment fallbacks work without exporting anything.
func Load(cmd *cobra.Command) (Config, error) {
	_ = godotenv.Load()

	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	mappingFile, err := flags.GetString("mapping-file")
	if err != nil {
		return Config{}, err
	}
	excludeFile, err := flags.GetString("exclude-file")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}

	cfg, err := loadFile(configPath)
	if err != nil {
		return Config{}, err
	}

	cfg.DryRun = dryRun
	cfg.MappingFile = mappingFile
	cfg.ExcludeFile = excludeFile

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}
	cfg.LogLevel = logLevel

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile reads the config file with viper; the extension selects the format.
func loadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("source.tls", true)
	v.SetDefault("destination.tls", true)
	v.SetDefault("options.batch_size", 50)
	v.SetDefault("options.sleep_between_seconds", 2)
	v.SetDefault("options.archive_prefix", "Migrated/")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Source.Password == "" {
		cfg.Source.Password = os.Getenv("SRC_IMAP_PASS")
	}
	if cfg.Destination.Password == "" {
		cfg.Destination.Password = os.Getenv("DST_IMAP_PASS")
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Source.Host == "" {
		return fmt.Errorf("source.host is required")
	}
	if cfg.Source.Username == "" {
		return fmt.Errorf("source.username is required")
	}
	if cfg.Source.Password == "" {
		return fmt.Errorf("source password must be set in the config file or SRC_IMAP_PASS")
	}
	if cfg.Destination.Host == "" {
		return fmt.Errorf("destination.host is required")
	}
	if cfg.Destination.Username == "" {
		return fmt.Errorf("destination.username is required")
	}
	if cfg.Destination.Password == "" {
		return fmt.Errorf("destination password must be set in the config file or DST_IMAP_PASS")
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Options.BatchSize <= 0 {
		return fmt.Errorf("options.batch_size must be positive")
	}
	if cfg.Options.SleepBetweenSeconds < 0 {
		return fmt.Errorf("options.sleep_between_seconds must not be negative")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
