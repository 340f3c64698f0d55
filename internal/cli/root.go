// Package cli is the upscaled command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"upscaled/internal/config"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg config.Config
	log zerolog.Logger
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "upscaled",
		Short:         "Image super-resolution service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", os.Getenv("UPSCALED_CONFIG"), "Config file (.yaml, .json, .toml); defaults UPSCALED_CONFIG")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "Optional dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off (defaults UPSCALED_LOG_LEVEL or config)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadEnvFile(a.envFile); err != nil {
			return err
		}
		// The env file may set UPSCALED_CONFIG.
		if a.configPath == "" {
			a.configPath = os.Getenv("UPSCALED_CONFIG")
		}
		cfg, err := loadConfig(a.configPath)
		if err != nil {
			return err
		}
		if a.logLevel != "" {
			cfg.LogLevel = a.logLevel
		}
		cfg = cfg.WithDefaults()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		a.cfg = cfg
		a.log = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		return nil
	}

	root.AddCommand(newServeCmd(a), newModelsCmd(a), newUpscaleCmd(a))
	return root
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// loadConfig reads the optional config file and applies UPSCALED_*
// environment overrides on top of it.
func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		c, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *config.Config) {
	if v := os.Getenv("UPSCALED_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("UPSCALED_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("UPSCALED_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("UPSCALED_DEFAULT_MODEL"); v != "" {
		cfg.DefaultModel = v
	}
	if v := os.Getenv("UPSCALED_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("UPSCALED_ARTIFACT_URL"); v != "" {
		cfg.ArtifactURL = v
	}
	if v := os.Getenv("UPSCALED_ARTIFACT_DIR"); v != "" {
		cfg.ArtifactDir = v
	}
	if v := os.Getenv("UPSCALED_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("UPSCALED_CORS_ORIGINS"); v != "" {
		cfg.CORSEnabled = true
		cfg.CORSOrigins = splitCSV(v)
	}
}

// newLogger builds the root logger. "off" disables logging.
func newLogger(w io.Writer, level, format string) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch level {
	case "off":
		lvl = zerolog.Disabled
	case "":
	default:
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
