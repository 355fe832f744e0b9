package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/dshills/snapledger/pkg/ledger"
	"github.com/dshills/snapledger/pkg/logger"
)

const (
	// Version is the current version of snapledger
	Version = "1.0.0"

	configDirEnv   = "SNAPLEDGER_CONFIG_DIR"
	configFileName = "config.yaml"
	scenariosDir   = "scenarios"
)

// Config holds the global configuration for the snapledger CLI
type Config struct {
	ConfigDir string
	Debug     bool
	LogFormat string

	// File is the content of config.yaml, loaded before any command runs
	File FileConfig

	log *zap.Logger
}

// FileConfig is the on-disk configuration in config.yaml.
type FileConfig struct {
	Version  string              `yaml:"version"`
	LogLevel string              `yaml:"log_level,omitempty"`
	History  HistoryConfig       `yaml:"history,omitempty"`
	Policy   ledger.PolicyConfig `yaml:"policy,omitempty"`
}

// HistoryConfig holds history defaults applied to scenarios that do not set them.
type HistoryConfig struct {
	Capacity int `yaml:"capacity,omitempty"`
}

// DefaultFileConfig returns the configuration written on first use.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Version:  "1.0",
		LogLevel: "info",
		Policy:   ledger.PolicyConfig{Kind: ledger.PolicyFloor},
	}
}

// GlobalConfig is the shared configuration instance
var GlobalConfig = &Config{}

// NewRootCommand creates the root cobra command for snapledger
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapledger",
		Short: "snapledger - account history with undo, redo and restore",
		Long: `snapledger keeps a linear, cursor-based history of account balance snapshots.
Every accepted deposit or withdrawal records a snapshot; undo and redo move
through the history and any snapshot can be restored out of band.

Scenarios are YAML scripts of account operations with expectations, run
against a fresh account.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			GlobalConfig.log = newLogger(cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if GlobalConfig.log != nil {
				_ = GlobalConfig.log.Sync()
			}
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&GlobalConfig.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&GlobalConfig.ConfigDir, "config-dir", "", "Configuration directory (default: ~/.snapledger)")
	cmd.PersistentFlags().StringVar(&GlobalConfig.LogFormat, "log-format", string(logger.FormatAuto), "Log format: auto, console or json")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewDemoCommand())
	cmd.AddCommand(NewInitCommand())

	return cmd
}

// initConfig resolves the configuration directory, creates it on first use
// and loads config.yaml.
func initConfig() error {
	// Environment variable always takes priority (for testing)
	if envDir := os.Getenv(configDirEnv); envDir != "" {
		GlobalConfig.ConfigDir = envDir
	} else if GlobalConfig.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		GlobalConfig.ConfigDir = filepath.Join(homeDir, ".snapledger")
	}

	if err := os.MkdirAll(GetScenariosDir(), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := GetConfigPath()
	data, err := os.ReadFile(configFile)
	if errors.Is(err, os.ErrNotExist) {
		GlobalConfig.File = DefaultFileConfig()
		data, err := yaml.Marshal(GlobalConfig.File)
		if err != nil {
			return fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err := os.WriteFile(configFile, data, 0644); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultFileConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", configFile, err)
	}
	if cfg.History.Capacity < 0 {
		return fmt.Errorf("invalid %s: history capacity must not be negative", configFile)
	}
	if _, err := ledger.NewPolicy(cfg.Policy); err != nil {
		return fmt.Errorf("invalid %s: %w", configFile, err)
	}
	GlobalConfig.File = cfg
	return nil
}

// newLogger builds the CLI logger. --debug overrides the configured level.
func newLogger(w io.Writer) *zap.Logger {
	level := logger.ParseLevel(GlobalConfig.File.LogLevel)
	if GlobalConfig.Debug {
		level = zapcore.DebugLevel
	}

	format := logger.ParseFormat(GlobalConfig.LogFormat)
	f, _ := w.(*os.File)
	format = logger.Resolve(format, f)

	return logger.New(w, level, format).Named(logger.ComponentCLI)
}

// Logger returns the CLI logger, or a no-op logger before initialization.
func Logger() *zap.Logger {
	return logger.OrNop(GlobalConfig.log)
}

// GetConfigDir returns the configuration directory path.
// Priority order: 1) SNAPLEDGER_CONFIG_DIR env var, 2) GlobalConfig.ConfigDir, 3) ~/.snapledger
func GetConfigDir() string {
	if envDir := os.Getenv(configDirEnv); envDir != "" {
		return envDir
	}
	if GlobalConfig.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".snapledger"
		}
		return filepath.Join(homeDir, ".snapledger")
	}
	return GlobalConfig.ConfigDir
}

// GetScenariosDir returns the directory holding named scenarios
func GetScenariosDir() string {
	return filepath.Join(GetConfigDir(), scenariosDir)
}

// GetConfigPath returns the path to config.yaml
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), configFileName)
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}
