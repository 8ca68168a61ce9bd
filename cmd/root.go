package cmd

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cafes/internal/api"
)

// Config holds CLI configuration.
type Config struct {
	DBPath          string
	Addr            string
	APIKey          string
	SeedPath        string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	Version         string
}

// ParseFlags parses command-line flags and returns configuration.
func ParseFlags(version string) (*Config, error) {
	return parseArgs(os.Args[1:], version, stdinIsTerminal())
}

func parseArgs(args []string, version string, interactive bool) (*Config, error) {
	config := &Config{Version: version}

	// Load .env files first so env-based defaults work with existing flag parsing.
	loadDotEnv(".env")
	loadDotEnv(".env.local")

	fs := flag.NewFlagSet("cafes", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var shutdownSecs int
	fs.StringVar(&config.DBPath, "db", "", "Path to SQLite database file (default: ~/.cafes/cafes.db)")
	fs.StringVar(&config.Addr, "addr", api.DefaultAddress, "HTTP listen address")
	fs.StringVar(&config.APIKey, "api-key", "", "Shared secret for DELETE /report-closed (or set CAFES_API_KEY env var)")
	fs.StringVar(&config.SeedPath, "seed", "", "JSON file of cafes to load into an empty database")
	fs.IntVar(&shutdownSecs, "shutdown-secs", 5, "Graceful shutdown timeout in seconds")
	fs.BoolVar(&config.ShowVersion, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	if shutdownSecs < 0 {
		return nil, fmt.Errorf("shutdown-secs must be >= 0")
	}
	config.ShutdownTimeout = time.Duration(shutdownSecs) * time.Second

	if config.ShowVersion {
		return config, nil
	}

	// Get API key from env if not provided via flag. "apikey" is the name
	// older deployments put in their .env.
	if config.APIKey == "" {
		config.APIKey = os.Getenv("CAFES_API_KEY")
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("apikey")
	}

	// Set default DB path if not specified
	var configDir string
	if config.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		configDir = filepath.Join(home, ".cafes")
		if err := os.MkdirAll(configDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		config.DBPath = filepath.Join(configDir, "cafes.db")
	} else {
		configDir = filepath.Dir(config.DBPath)
	}

	if config.APIKey == "" {
		secureKey, err := loadSecureAPIKey(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load secure API key: %w", err)
		}
		config.APIKey = strings.TrimSpace(secureKey)
	}

	if config.APIKey == "" {
		settings, err := loadSetupSettings(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load setup settings: %w", err)
		}

		if shouldRunSetup(settings, interactive) {
			key, err := runSetup(configDir)
			if err != nil {
				return nil, fmt.Errorf("failed to run setup: %w", err)
			}
			config.APIKey = key
		}
	}

	return config, nil
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}

		value = strings.Trim(value, `"'`)
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}

func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
