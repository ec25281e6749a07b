package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Poller       PollerConfig       `mapstructure:"poller"`
	Aria2        Aria2Config        `mapstructure:"aria2"`
	History      HistoryConfig      `mapstructure:"history"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PollerConfig contains reconciliation loop configuration
type PollerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
}

// Aria2Config contains configuration for the aria2 RPC downloader
type Aria2Config struct {
	RPCUrl      string        `mapstructure:"rpc_url"`
	Secret      string        `mapstructure:"secret"`
	DownloadDir string        `mapstructure:"download_dir"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// HistoryConfig contains history persistence configuration
type HistoryConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	ListLimit    int    `mapstructure:"list_limit"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Poller: PollerConfig{
			Interval:     time.Second,
			QueryTimeout: 10 * time.Second,
		},
		Aria2: Aria2Config{
			RPCUrl:      "http://localhost:6800/jsonrpc",
			Secret:      "",
			DownloadDir: "$HOME/.inferra/models",
			HTTPTimeout: 10 * time.Second,
		},
		History: HistoryConfig{
			DatabasePath: "$HOME/.inferra/history.db",
			ListLimit:    50,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
