package config

import (
	"agent-browser/engine"
	"agent-browser/engine/chromium"
	"agent-browser/stealth"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Browser
	Headless        bool     `mapstructure:"headless"`
	ExecPath        string   `mapstructure:"exec_path"`
	WindowWidth     int      `mapstructure:"window_width"`
	WindowHeight    int      `mapstructure:"window_height"`
	UserAgent       string   `mapstructure:"user_agent"`
	UserAgents      []string `mapstructure:"user_agents"`
	ProxyServer     string   `mapstructure:"proxy_server"`
	ProxyBypass     string   `mapstructure:"proxy_bypass"`
	Args            []string `mapstructure:"args"`
	AllowFileAccess bool     `mapstructure:"allow_file_access"`

	// Stealth profile
	Languages     []string `mapstructure:"languages"`
	WebGLVendor   string   `mapstructure:"webgl_vendor"`
	WebGLRenderer string   `mapstructure:"webgl_renderer"`

	// Probing
	MaxWorkers     int           `mapstructure:"max_workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout"`
	MinDelay       time.Duration `mapstructure:"min_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`

	// Output
	CSVPath    string `mapstructure:"csv_path"`
	DBEnabled  bool   `mapstructure:"db_enabled"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     int    `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBSSLMode  string `mapstructure:"db_sslmode"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		WindowWidth:    1920,
		WindowHeight:   1080,
		UserAgents:     chromium.DefaultUserAgents(),
		Languages:      []string{"en-US", "en"},
		WebGLVendor:    "Intel Inc.",
		WebGLRenderer:  "Intel Iris OpenGL Engine",
		MaxWorkers:     3,
		RequestTimeout: 60 * time.Second,
		LaunchTimeout:  30 * time.Second,
		MinDelay:       1 * time.Second,
		MaxDelay:       3 * time.Second,
		MaxRetries:     3,
		CSVPath:        "output/probes.csv",
		DBHost:         "localhost",
		DBPort:         5433,
		DBUser:         "postgres",
		DBPassword:     "postgres",
		DBName:         "agent_browser",
		DBSSLMode:      "disable",
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// EnvPrefix prefixes every environment override, e.g. AGENT_BROWSER_HEADLESS.
const EnvPrefix = "AGENT_BROWSER"

// Load reads DefaultConfig, then the optional file at path, then the
// environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("headless", d.Headless)
	v.SetDefault("exec_path", d.ExecPath)
	v.SetDefault("window_width", d.WindowWidth)
	v.SetDefault("window_height", d.WindowHeight)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("user_agents", d.UserAgents)
	v.SetDefault("proxy_server", d.ProxyServer)
	v.SetDefault("proxy_bypass", d.ProxyBypass)
	v.SetDefault("args", d.Args)
	v.SetDefault("allow_file_access", d.AllowFileAccess)
	v.SetDefault("languages", d.Languages)
	v.SetDefault("webgl_vendor", d.WebGLVendor)
	v.SetDefault("webgl_renderer", d.WebGLRenderer)
	v.SetDefault("max_workers", d.MaxWorkers)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("launch_timeout", d.LaunchTimeout)
	v.SetDefault("min_delay", d.MinDelay)
	v.SetDefault("max_delay", d.MaxDelay)
	v.SetDefault("max_retries", d.MaxRetries)
	v.SetDefault("csv_path", d.CSVPath)
	v.SetDefault("db_enabled", d.DBEnabled)
	v.SetDefault("db_host", d.DBHost)
	v.SetDefault("db_port", d.DBPort)
	v.SetDefault("db_user", d.DBUser)
	v.SetDefault("db_password", d.DBPassword)
	v.SetDefault("db_name", d.DBName)
	v.SetDefault("db_sslmode", d.DBSSLMode)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

func (c *Config) Validate() error {
	if c.MaxWorkers < 1 {
		return fmt.Errorf("max_workers must be at least 1, got %d", c.MaxWorkers)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.MinDelay > c.MaxDelay {
		return fmt.Errorf("min_delay %v exceeds max_delay %v", c.MinDelay, c.MaxDelay)
	}
	return nil
}

func (c *Config) LaunchOptions() engine.LaunchOptions {
	opts := engine.LaunchOptions{
		Headless:        c.Headless,
		UserAgent:       c.UserAgent,
		Args:            append([]string(nil), c.Args...),
		AllowFileAccess: c.AllowFileAccess,
	}
	if c.ProxyServer != "" {
		opts.Proxy = &engine.Proxy{Server: c.ProxyServer, Bypass: c.ProxyBypass}
	}
	return opts
}

func (c *Config) Chromium() chromium.Config {
	return chromium.Config{
		ExecPath:     c.ExecPath,
		WindowWidth:  c.WindowWidth,
		WindowHeight: c.WindowHeight,
		UserAgents:   append([]string(nil), c.UserAgents...),
	}
}

func (c *Config) StealthProfile() stealth.Profile {
	return stealth.Profile{
		Languages:     append([]string(nil), c.Languages...),
		WebGLVendor:   c.WebGLVendor,
		WebGLRenderer: c.WebGLRenderer,
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}
