package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that YAML can decode from strings like "24h"
// as well as from raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// Config holds application configuration
type Config struct {
	// Price window
	WindowSize int `yaml:"windowSize"` // bars of daily history pulled each cycle

	// Breakout signal
	ShortBreakout int `yaml:"shortBreakout"` // 20-day channel
	LongBreakout  int `yaml:"longBreakout"`  // 55-day channel

	// Volatility
	ATRPeriod int `yaml:"atrPeriod"`

	// Risk
	RiskPerTrade       float64 `yaml:"riskPerTrade"`       // fraction of risk capital per entry
	CapitalMultiplier  float64 `yaml:"capitalMultiplier"`  // drawdown amplification when sizing
	StopMultiplier     float64 `yaml:"stopMultiplier"`     // protective stop offset in ATRs
	PriceFloor         float64 `yaml:"priceFloor"`         // entries below this price are blocked
	MarketRiskLimit    int     `yaml:"marketRiskLimit"`    // max open positions per market
	DirectionRiskLimit int     `yaml:"directionRiskLimit"` // max open positions per direction

	// Session scheduling
	SessionLength Duration `yaml:"sessionLength"` // one pipeline pass per session
	OpenDelay     Duration `yaml:"openDelay"`     // stop flags clear this long after open
	CycleDelay    Duration `yaml:"cycleDelay"`    // pipeline pass runs this long after open
	CloseLead     Duration `yaml:"closeLead"`     // risk snapshot logs this long before close

	// Simulation defaults (used when running against the built-in venue)
	SimStartingCash float64 `yaml:"simStartingCash"`
	SimSeed         int64   `yaml:"simSeed"`

	// Logging configuration
	LogFile       string `yaml:"logFile"`
	LogMaxSize    int    `yaml:"logMaxSize"`    // megabytes
	LogMaxBackups int    `yaml:"logMaxBackups"` // number of files
	LogMaxAge     int    `yaml:"logMaxAge"`     // days
	LogCompress   bool   `yaml:"logCompress"`
	LogLevel      int    `yaml:"logLevel"` // 0=DEBUG, 1=INFO, 2=WARNING, 3=ERROR

	// Status server configuration
	StatusAddr string `yaml:"statusAddr"`

	// Dashboard configuration
	WebUIAddr string `yaml:"webUIAddr"`

	// Daemon configuration
	DaemonMode bool `yaml:"-"`
	Debug      bool `yaml:"-"`
}

// LoadConfig loads configuration from environment variables or uses defaults
func LoadConfig() *Config {
	return &Config{
		WindowSize: getEnvAsInt("WINDOW_SIZE", 22),

		ShortBreakout: getEnvAsInt("SHORT_BREAKOUT", 20),
		LongBreakout:  getEnvAsInt("LONG_BREAKOUT", 55),

		ATRPeriod: getEnvAsInt("ATR_PERIOD", 20),

		RiskPerTrade:       getEnvAsFloat("RISK_PER_TRADE", 0.01),
		CapitalMultiplier:  getEnvAsFloat("CAPITAL_MULTIPLIER", 2),
		StopMultiplier:     getEnvAsFloat("STOP_MULTIPLIER", 2),
		PriceFloor:         getEnvAsFloat("PRICE_FLOOR", 1.0),
		MarketRiskLimit:    getEnvAsInt("MARKET_RISK_LIMIT", 4),
		DirectionRiskLimit: getEnvAsInt("DIRECTION_RISK_LIMIT", 12),

		// Defaults compress a trading day so dry runs are observable;
		// production deployments override these to a 24h session.
		SessionLength: Duration(getEnvAsDuration("SESSION_LENGTH", time.Minute)),
		OpenDelay:     Duration(getEnvAsDuration("OPEN_DELAY", 2*time.Second)),
		CycleDelay:    Duration(getEnvAsDuration("CYCLE_DELAY", 5*time.Second)),
		CloseLead:     Duration(getEnvAsDuration("CLOSE_LEAD", 2*time.Second)),

		SimStartingCash: getEnvAsFloat("SIM_STARTING_CASH", 1_000_000),
		SimSeed:         int64(getEnvAsInt("SIM_SEED", 0)),

		LogFile:       getEnv("LOG_FILE", "logs/turtle.log"),
		LogMaxSize:    getEnvAsInt("LOG_MAX_SIZE", 10),
		LogMaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 14),
		LogMaxAge:     getEnvAsInt("LOG_MAX_AGE", 14),
		LogCompress:   getEnvAsBool("LOG_COMPRESS", false),
		LogLevel:      getEnvAsInt("LOG_LEVEL", 1),

		StatusAddr: getEnv("STATUS_ADDR", "127.0.0.1:8787"),
		WebUIAddr:  getEnv("WEBUI_ADDR", "127.0.0.1:8788"),

		DaemonMode: getEnvAsBool("DAEMON_MODE", false),
	}
}

// ApplyFile overlays settings from a YAML file on top of the current config.
// Absent keys keep their existing values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return c.Validate()
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.WindowSize < c.ATRPeriod+2 {
		return fmt.Errorf("windowSize %d too small: ATR needs %d bars plus one prior close and the channels exclude the latest bar", c.WindowSize, c.ATRPeriod+1)
	}
	if c.ShortBreakout <= 0 || c.LongBreakout <= 0 {
		return fmt.Errorf("breakout lengths must be positive (got %d/%d)", c.ShortBreakout, c.LongBreakout)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade >= 1 {
		return fmt.Errorf("riskPerTrade %f out of range (0,1)", c.RiskPerTrade)
	}
	if c.MarketRiskLimit <= 0 || c.DirectionRiskLimit <= 0 {
		return fmt.Errorf("risk limits must be positive")
	}
	if c.SessionLength <= 0 {
		return fmt.Errorf("sessionLength must be positive")
	}
	return nil
}

// getEnvAsBool gets an environment variable as a boolean value
func getEnvAsBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	switch value {
	case "true", "1", "yes", "on", "True", "TRUE":
		return true
	default:
		return false
	}
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
