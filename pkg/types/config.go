// Package types provides configuration types for the market simulator.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulationConfig represents the configuration for a simulation run
type SimulationConfig struct {
	Start          time.Time       `json:"start" mapstructure:"start"`
	End            time.Time       `json:"end" mapstructure:"end"`
	Exchange       string          `json:"exchange" mapstructure:"exchange"`
	Timezone       string          `json:"timezone" mapstructure:"timezone"`
	CapitalBase    decimal.Decimal `json:"capitalBase" mapstructure:"capital_base"`
	ExecutionDelay time.Duration   `json:"executionDelay" mapstructure:"execution_delay"`
	EventLogPath   string          `json:"eventLogPath,omitempty" mapstructure:"event_log_path"`
}

// DataConfig represents the historical price data configuration
type DataConfig struct {
	CSVPath string   `json:"csvPath" mapstructure:"csv_path"`
	Symbols []string `json:"symbols" mapstructure:"symbols"`
}

// ServerConfig represents the optional HTTP/WebSocket server configuration
type ServerConfig struct {
	Enabled       bool          `json:"enabled" mapstructure:"enabled"`
	Host          string        `json:"host" mapstructure:"host"`
	Port          int           `json:"port" mapstructure:"port"`
	WebSocketPath string        `json:"websocketPath" mapstructure:"websocket_path"`
	ReadTimeout   time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	EnableMetrics bool          `json:"enableMetrics" mapstructure:"enable_metrics"`
}
