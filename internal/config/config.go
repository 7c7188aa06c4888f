// Package config loads the bot configuration from an HCL file, then applies
// BLACKJACK_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/saldoran/blackjack-tg-bot/internal/economy"
)

// Config is the complete bot configuration
type Config struct {
	Server  ServerSettings
	Economy EconomySettings
	Game    GameSettings
	Storage StorageSettings
}

// ServerSettings configures the chat gateway listener
type ServerSettings struct {
	Address  string `env:"ADDRESS"`
	Port     int    `env:"PORT"`
	LogLevel string `env:"LOG_LEVEL"`

	// Transports must present one of AuthTokens, or a token AuthURL accepts.
	// With neither set the gateway is open.
	AuthTokens []string `env:"AUTH_TOKENS" envSeparator:","`
	AuthURL    string   `env:"AUTH_URL"`
}

// EconomySettings holds the chip rewards
type EconomySettings struct {
	DailyBonus         int64 `env:"DAILY_BONUS"`
	WinReward          int64 `env:"WIN_REWARD"`
	DrawReward         int64 `env:"DRAW_REWARD"`
	LosePenalty        int64 `env:"LOSE_PENALTY"`
	DailyCooldownHours int   `env:"DAILY_COOLDOWN_HOURS"`
}

// GameSettings holds round rules enforced by the session layer
type GameSettings struct {
	JoinTimeoutSeconds int   `env:"JOIN_TIMEOUT"`
	MinPlayers         int   `env:"MIN_PLAYERS"`
	MaxPlayers         int   `env:"MAX_PLAYERS"`
	Seed               int64 `env:"SEED"`
}

// StorageSettings locates the ledger file
type StorageSettings struct {
	Path string `env:"STORE_PATH"`
}

// fileConfig mirrors the HCL layout. Pointers tell "absent" from zero.
type fileConfig struct {
	Server  *serverBlock  `hcl:"server,block"`
	Economy *economyBlock `hcl:"economy,block"`
	Game    *gameBlock    `hcl:"game,block"`
	Storage *storageBlock `hcl:"storage,block"`
}

type serverBlock struct {
	Address    *string   `hcl:"address,optional"`
	Port       *int      `hcl:"port,optional"`
	LogLevel   *string   `hcl:"log_level,optional"`
	AuthTokens *[]string `hcl:"auth_tokens,optional"`
	AuthURL    *string   `hcl:"auth_url,optional"`
}

type economyBlock struct {
	DailyBonus         *int64 `hcl:"daily_bonus,optional"`
	WinReward          *int64 `hcl:"win_reward,optional"`
	DrawReward         *int64 `hcl:"draw_reward,optional"`
	LosePenalty        *int64 `hcl:"lose_penalty,optional"`
	DailyCooldownHours *int   `hcl:"daily_cooldown_hours,optional"`
}

type gameBlock struct {
	JoinTimeoutSeconds *int   `hcl:"join_timeout_seconds,optional"`
	MinPlayers         *int   `hcl:"min_players,optional"`
	MaxPlayers         *int   `hcl:"max_players,optional"`
	Seed               *int64 `hcl:"seed,optional"`
}

type storageBlock struct {
	Path *string `hcl:"path,optional"`
}

// Default returns the stock configuration
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Economy: EconomySettings{
			DailyBonus:         100,
			WinReward:          50,
			DrawReward:         0,
			LosePenalty:        -25,
			DailyCooldownHours: 24,
		},
		Game: GameSettings{
			JoinTimeoutSeconds: 20,
			MinPlayers:         2,
			MaxPlayers:         6,
		},
		Storage: StorageSettings{
			Path: "storage.json",
		},
	}
}

// Load reads filename over the defaults. A missing file is not an error.
// Environment overrides are applied afterwards.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			if err := cfg.loadFile(filename); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(filename string) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var fc fileConfig
	diags = gohcl.DecodeBody(file.Body, nil, &fc)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if b := fc.Server; b != nil {
		set(&c.Server.Address, b.Address)
		set(&c.Server.Port, b.Port)
		set(&c.Server.LogLevel, b.LogLevel)
		set(&c.Server.AuthTokens, b.AuthTokens)
		set(&c.Server.AuthURL, b.AuthURL)
	}
	if b := fc.Economy; b != nil {
		set(&c.Economy.DailyBonus, b.DailyBonus)
		set(&c.Economy.WinReward, b.WinReward)
		set(&c.Economy.DrawReward, b.DrawReward)
		set(&c.Economy.LosePenalty, b.LosePenalty)
		set(&c.Economy.DailyCooldownHours, b.DailyCooldownHours)
	}
	if b := fc.Game; b != nil {
		set(&c.Game.JoinTimeoutSeconds, b.JoinTimeoutSeconds)
		set(&c.Game.MinPlayers, b.MinPlayers)
		set(&c.Game.MaxPlayers, b.MaxPlayers)
		set(&c.Game.Seed, b.Seed)
	}
	if b := fc.Storage; b != nil {
		set(&c.Storage.Path, b.Path)
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// ApplyEnv overrides fields from BLACKJACK_* variables, e.g.
// BLACKJACK_ECONOMY_WIN_REWARD or BLACKJACK_STORAGE_STORE_PATH.
func (c *Config) ApplyEnv() error {
	opts := env.Options{Prefix: "BLACKJACK_"}
	targets := []struct {
		prefix string
		v      any
	}{
		{"SERVER_", &c.Server},
		{"ECONOMY_", &c.Economy},
		{"GAME_", &c.Game},
		{"STORAGE_", &c.Storage},
	}
	for _, target := range targets {
		o := opts
		o.Prefix += target.prefix
		if err := env.ParseWithOptions(target.v, o); err != nil {
			return fmt.Errorf("parse env: %w", err)
		}
	}
	return nil
}

// Validate checks the configuration for values the bot cannot run with
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Server.LogLevel)
	}
	for _, tok := range c.Server.AuthTokens {
		if tok == "" {
			return fmt.Errorf("auth tokens must not be empty")
		}
	}
	if c.Economy.DailyCooldownHours < 0 {
		return fmt.Errorf("daily cooldown must not be negative")
	}
	if c.Game.JoinTimeoutSeconds < 0 {
		return fmt.Errorf("join timeout must not be negative")
	}
	if c.Game.MinPlayers < 1 {
		return fmt.Errorf("min players must be at least 1")
	}
	// More than six players risks running the deck dry.
	if c.Game.MaxPlayers < c.Game.MinPlayers || c.Game.MaxPlayers > 6 {
		return fmt.Errorf("max players must be between min players (%d) and 6", c.Game.MinPlayers)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	return nil
}

// Addr returns host:port for the listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// Policy converts the economy settings
func (c *Config) Policy() economy.Policy {
	return economy.Policy{
		WinReward:     c.Economy.WinReward,
		DrawReward:    c.Economy.DrawReward,
		LosePenalty:   c.Economy.LosePenalty,
		DailyBonus:    c.Economy.DailyBonus,
		DailyCooldown: time.Duration(c.Economy.DailyCooldownHours) * time.Hour,
	}
}

// JoinTimeout returns the registration window
func (c *Config) JoinTimeout() time.Duration {
	return time.Duration(c.Game.JoinTimeoutSeconds) * time.Second
}
