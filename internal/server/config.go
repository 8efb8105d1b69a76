package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cardroomlabs/holdemd/internal/table"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server  ServerSettings `hcl:"server,block"`
	Tables  *TableDefaults `hcl:"table_defaults,block"`
	Storage *StorageConfig `hcl:"storage,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`

	// AuthURL points at an external token validation endpoint. Empty
	// disables authentication (dev mode).
	AuthURL string `hcl:"auth_url,optional"`
}

// TableDefaults are the parameters applied to every created table.
type TableDefaults struct {
	MaxSeats             int `hcl:"max_seats,optional"`
	SmallBlind           int `hcl:"small_blind,optional"`
	BigBlind             int `hcl:"big_blind,optional"`
	BuyInMin             int `hcl:"buy_in_min,optional"`
	BuyInMax             int `hcl:"buy_in_max,optional"`
	TurnTimeoutSeconds   int `hcl:"turn_timeout_seconds,optional"`
	PostHandDelaySeconds int `hcl:"post_hand_delay_seconds,optional"`
	SitOutHandLimit      int `hcl:"sit_out_hand_limit,optional"`
}

// StorageConfig locates the sqlite database backing balances and snapshots.
type StorageConfig struct {
	Path string `hcl:"path,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: &TableDefaults{
			MaxSeats:             8,
			SmallBlind:           5,
			BigBlind:             10,
			BuyInMin:             200,
			BuyInMax:             2000,
			TurnTimeoutSeconds:   30,
			PostHandDelaySeconds: 10,
			SitOutHandLimit:      3,
		},
		Storage: &StorageConfig{
			Path: "holdemd.db",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Tables == nil {
		config.Tables = defaults.Tables
	} else {
		d := defaults.Tables
		t := config.Tables
		if t.MaxSeats == 0 {
			t.MaxSeats = d.MaxSeats
		}
		if t.SmallBlind == 0 {
			t.SmallBlind = d.SmallBlind
		}
		if t.BigBlind == 0 {
			t.BigBlind = t.SmallBlind * 2
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 20
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 200
		}
		if t.TurnTimeoutSeconds == 0 {
			t.TurnTimeoutSeconds = d.TurnTimeoutSeconds
		}
		if t.PostHandDelaySeconds == 0 {
			t.PostHandDelaySeconds = d.PostHandDelaySeconds
		}
		if t.SitOutHandLimit == 0 {
			t.SitOutHandLimit = d.SitOutHandLimit
		}
	}
	if config.Storage == nil {
		config.Storage = defaults.Storage
	}
	if config.Storage.Path == "" {
		config.Storage.Path = defaults.Storage.Path
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	t := c.Tables
	if t.SmallBlind <= 0 {
		return fmt.Errorf("table defaults: small blind must be positive")
	}
	if t.BigBlind <= t.SmallBlind {
		return fmt.Errorf("table defaults: big blind must be greater than small blind")
	}
	if t.MaxSeats < 2 || t.MaxSeats > 8 {
		return fmt.Errorf("table defaults: max seats must be between 2 and 8")
	}
	if t.BuyInMin >= t.BuyInMax {
		return fmt.Errorf("table defaults: buy-in minimum must be less than maximum")
	}
	if t.TurnTimeoutSeconds <= 0 {
		return fmt.Errorf("table defaults: turn timeout must be positive")
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfig converts the defaults into the table package's config.
func (c *ServerConfig) TableConfig() table.Config {
	t := c.Tables
	return table.Config{
		MaxSeats:        t.MaxSeats,
		SmallBlind:      t.SmallBlind,
		BigBlind:        t.BigBlind,
		MinBuyIn:        t.BuyInMin,
		MaxBuyIn:        t.BuyInMax,
		TurnTimeout:     time.Duration(t.TurnTimeoutSeconds) * time.Second,
		PostHandDelay:   time.Duration(t.PostHandDelaySeconds) * time.Second,
		SitOutHandLimit: t.SitOutHandLimit,
	}
}
