package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paularlott/cli"
	"gopkg.in/yaml.v3"
)

// Config holds the client configuration
type Config struct {
	ServerURL            string
	APIToken             string
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	RefreshSchedule      string // cron spec for the dashboard auto refresh, empty disables it
	View                 string // initial view: dashboard, scanning, inventory, categories
	LogFile              string // log destination while the terminal dashboard owns the screen
	ConfigFile           string // YAML file that was loaded, if any
	EnvFile              string // .env file that was loaded, if any
}

// fileConfig mirrors the YAML configuration file layout
type fileConfig struct {
	ServerURL string `yaml:"server_url"`
	APIToken  string `yaml:"api_token"`
	Reconnect struct {
		BaseDelay   string `yaml:"base_delay"`
		MaxAttempts int    `yaml:"max_attempts"`
	} `yaml:"reconnect"`
	HeartbeatInterval string `yaml:"heartbeat_interval"`
	RefreshSchedule   string `yaml:"refresh_schedule"`
	View              string `yaml:"view"`
	Log               struct {
		File string `yaml:"file"`
	} `yaml:"log"`
}

const (
	DefaultServerURL            = "http://localhost:5000"
	DefaultReconnectBaseDelay   = time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultRefreshSchedule      = "@every 30s"
	DefaultView                 = "dashboard"
	defaultConfigFile           = "hometier.yaml"
)

var validViews = map[string]bool{
	"dashboard":  true,
	"scanning":   true,
	"inventory":  true,
	"categories": true,
}

// Defaults returns a configuration populated with default values only
func Defaults() *Config {
	return &Config{
		ServerURL:            DefaultServerURL,
		ReconnectBaseDelay:   DefaultReconnectBaseDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		HeartbeatInterval:    DefaultHeartbeatInterval,
		RefreshSchedule:      DefaultRefreshSchedule,
		View:                 DefaultView,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Command-line parameters (passed as opts)
// 2. Environment variables
// 3. .env file (if exists)
// 4. YAML config file (HT_CONFIG_FILE or ./hometier.yaml)
// 5. Default values
func Load(opts *Config) (*Config, error) {
	cfg := Defaults()

	configFile := os.Getenv("HT_CONFIG_FILE")
	if opts != nil && opts.ConfigFile != "" {
		configFile = opts.ConfigFile
	}
	if configFile == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			configFile = defaultConfigFile
		}
	}
	if configFile != "" {
		if err := loadFromYAML(cfg, configFile); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configFile, err)
		}
		cfg.ConfigFile = configFile
	}

	if _, err := os.Stat(".env"); err == nil {
		if err := loadFromEnvFile(cfg, ".env"); err != nil {
			return nil, fmt.Errorf("loading .env file: %w", err)
		}
		cfg.EnvFile = ".env"
	}

	for _, key := range envKeys {
		if value := os.Getenv(key); value != "" {
			if err := apply(cfg, key, value); err != nil {
				return nil, err
			}
		}
	}

	if opts != nil {
		mergeOpts(cfg, opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var envKeys = []string{
	"HT_SERVER_URL",
	"HT_API_TOKEN",
	"HT_RECONNECT_BASE_DELAY",
	"HT_MAX_RECONNECT_ATTEMPTS",
	"HT_HEARTBEAT_INTERVAL",
	"HT_REFRESH_SCHEDULE",
	"HT_VIEW",
	"HT_LOG_FILE",
}

// apply maps a single HT_* key onto the config
func apply(cfg *Config, key, value string) error {
	switch key {
	case "HT_SERVER_URL":
		cfg.ServerURL = value
	case "HT_API_TOKEN":
		cfg.APIToken = value
	case "HT_RECONNECT_BASE_DELAY":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		cfg.ReconnectBaseDelay = d
	case "HT_MAX_RECONNECT_ATTEMPTS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		cfg.MaxReconnectAttempts = n
	case "HT_HEARTBEAT_INTERVAL":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		cfg.HeartbeatInterval = d
	case "HT_REFRESH_SCHEDULE":
		cfg.RefreshSchedule = value
	case "HT_VIEW":
		cfg.View = value
	case "HT_LOG_FILE":
		cfg.LogFile = value
	}
	return nil
}

// loadFromYAML loads configuration from a YAML file
func loadFromYAML(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return err
	}

	pairs := map[string]string{
		"HT_SERVER_URL":           fc.ServerURL,
		"HT_API_TOKEN":            fc.APIToken,
		"HT_RECONNECT_BASE_DELAY": fc.Reconnect.BaseDelay,
		"HT_HEARTBEAT_INTERVAL":   fc.HeartbeatInterval,
		"HT_REFRESH_SCHEDULE":     fc.RefreshSchedule,
		"HT_VIEW":                 fc.View,
		"HT_LOG_FILE":             fc.Log.File,
	}
	if fc.Reconnect.MaxAttempts != 0 {
		pairs["HT_MAX_RECONNECT_ATTEMPTS"] = strconv.Itoa(fc.Reconnect.MaxAttempts)
	}
	for key, value := range pairs {
		if value == "" {
			continue
		}
		if err := apply(cfg, key, value); err != nil {
			return err
		}
	}
	return nil
}

// loadFromEnvFile loads configuration from a .env file
func loadFromEnvFile(cfg *Config, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE or KEY="VALUE"
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")
		if !strings.HasPrefix(key, "HT_") || value == "" {
			continue
		}
		if err := apply(cfg, key, value); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func mergeOpts(cfg, opts *Config) {
	if opts.ServerURL != "" {
		cfg.ServerURL = opts.ServerURL
	}
	if opts.APIToken != "" {
		cfg.APIToken = opts.APIToken
	}
	if opts.ReconnectBaseDelay > 0 {
		cfg.ReconnectBaseDelay = opts.ReconnectBaseDelay
	}
	if opts.MaxReconnectAttempts > 0 {
		cfg.MaxReconnectAttempts = opts.MaxReconnectAttempts
	}
	if opts.HeartbeatInterval > 0 {
		cfg.HeartbeatInterval = opts.HeartbeatInterval
	}
	if opts.RefreshSchedule != "" {
		cfg.RefreshSchedule = opts.RefreshSchedule
	}
	if opts.View != "" {
		cfg.View = opts.View
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://, got %q", c.ServerURL)
	}
	if c.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("reconnect base delay must be positive")
	}
	if c.MaxReconnectAttempts < 1 {
		return fmt.Errorf("max reconnect attempts must be at least 1")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if !validViews[c.View] {
		return fmt.Errorf("unknown view %q", c.View)
	}
	return nil
}

// String returns a string representation of the config source
func (c *Config) String() string {
	var sources []string
	if c.ConfigFile != "" {
		sources = append(sources, fmt.Sprintf("config file (%s)", c.ConfigFile))
	}
	if c.EnvFile != "" {
		sources = append(sources, fmt.Sprintf(".env file (%s)", c.EnvFile))
	}
	sources = append(sources, "environment variables")
	return strings.Join(sources, ", ")
}

// GetFlags returns the connection flags shared by every command talking to the server
func GetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to a YAML config file",
			EnvVars: []string{"HT_CONFIG_FILE"},
			Global:  true,
		},
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "HomeTier server URL (default " + DefaultServerURL + ")",
			Global:  true,
		},
		&cli.StringFlag{
			Name:   "token",
			Usage:  "API bearer token",
			Global: true,
		},
	}
}

// GetLiveFlags returns the flags of the realtime commands
func GetLiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "view", Usage: "Initial view: dashboard, scanning, inventory, categories"},
		&cli.StringFlag{Name: "reconnect-delay", Usage: "Base reconnect delay (e.g. 1s)"},
		&cli.IntFlag{Name: "max-reconnects", Usage: "Maximum reconnect attempts before going offline"},
		&cli.StringFlag{Name: "heartbeat", Usage: "Heartbeat interval (e.g. 30s)"},
		&cli.StringFlag{Name: "refresh", Usage: "Auto refresh schedule (cron spec, e.g. @every 30s)"},
		&cli.StringFlag{Name: "log-file", Usage: "Write logs to this file while the dashboard is running"},
	}
}

// FromCommand loads the configuration, applying the connection flags set on cmd
func FromCommand(_ context.Context, cmd *cli.Command) (*Config, error) {
	return Load(connectionOpts(cmd))
}

// LiveFromCommand loads the configuration of the realtime commands, which also carry
// the GetLiveFlags flags
func LiveFromCommand(_ context.Context, cmd *cli.Command) (*Config, error) {
	opts := connectionOpts(cmd)
	opts.View = cmd.GetString("view")
	opts.RefreshSchedule = cmd.GetString("refresh")
	opts.LogFile = cmd.GetString("log-file")
	opts.MaxReconnectAttempts = cmd.GetInt("max-reconnects")

	if v := cmd.GetString("reconnect-delay"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --reconnect-delay: %w", err)
		}
		opts.ReconnectBaseDelay = d
	}
	if v := cmd.GetString("heartbeat"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid --heartbeat: %w", err)
		}
		opts.HeartbeatInterval = d
	}
	return Load(opts)
}

func connectionOpts(cmd *cli.Command) *Config {
	return &Config{
		ConfigFile: cmd.GetString("config"),
		ServerURL:  cmd.GetString("server"),
		APIToken:   cmd.GetString("token"),
	}
}
