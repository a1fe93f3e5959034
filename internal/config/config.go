// Package config loads server and client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Rules holds the game constants shared by the server and every client.
// Both sides must agree on them, so they are parsed from the same variables.
type Rules struct {
	MaxPlayers        int           `env:"NSU_MAX_PLAYERS" envDefault:"4"`
	MinPlayersToStart int           `env:"NSU_MIN_PLAYERS_TO_START" envDefault:"2"`
	StartDelay        time.Duration `env:"NSU_START_DELAY" envDefault:"3s"`
	MaxTurns          int           `env:"NSU_MAX_TURNS" envDefault:"10"`

	DayHours           float64       `env:"NSU_DAY_HOURS" envDefault:"24"`
	LowHealthHours     float64       `env:"NSU_LOW_HEALTH_HOURS" envDefault:"16"`
	LowHealthThreshold int           `env:"NSU_LOW_HEALTH_THRESHOLD" envDefault:"30"`
	TurnHealthPenalty  int           `env:"NSU_TURN_HEALTH_PENALTY" envDefault:"5"`
	DecayInterval      time.Duration `env:"NSU_DECAY_INTERVAL" envDefault:"10s"`
	DecayStep          float64       `env:"NSU_DECAY_STEP" envDefault:"1"`
	InterestRate       float64       `env:"NSU_INTEREST_RATE" envDefault:"0.05"`
}

// DefaultRules returns the rules used when no environment is set.
func DefaultRules() Rules {
	return Rules{
		MaxPlayers:         4,
		MinPlayersToStart:  2,
		StartDelay:         3 * time.Second,
		MaxTurns:           10,
		DayHours:           24,
		LowHealthHours:     16,
		LowHealthThreshold: 30,
		TurnHealthPenalty:  5,
		DecayInterval:      10 * time.Second,
		DecayStep:          1,
		InterestRate:       0.05,
	}
}

// Validate reports rule combinations the session layer cannot honour.
func (r Rules) Validate() error {
	switch {
	case r.MaxPlayers < 1 || r.MaxPlayers > 4:
		return fmt.Errorf("max players must be within 1..4, got %d", r.MaxPlayers)
	case r.MinPlayersToStart < 1 || r.MinPlayersToStart > r.MaxPlayers:
		return fmt.Errorf("min players to start must be within 1..%d, got %d", r.MaxPlayers, r.MinPlayersToStart)
	case r.MaxTurns < 1:
		return fmt.Errorf("max turns must be positive, got %d", r.MaxTurns)
	case r.DayHours <= 0 || r.LowHealthHours <= 0 || r.LowHealthHours > r.DayHours:
		return fmt.Errorf("invalid day budget %.1f/%.1f", r.DayHours, r.LowHealthHours)
	case r.DecayInterval <= 0:
		return fmt.Errorf("decay interval must be positive, got %s", r.DecayInterval)
	}
	return nil
}

// Server is the configuration of cmd/server.
type Server struct {
	Addr     string `env:"NSU_SERVER_ADDR" envDefault:":8888"`
	HTTPAddr string `env:"NSU_HTTP_ADDR" envDefault:":8889"`

	ServiceName string `env:"NSU_SERVICE_NAME" envDefault:"nsulife-session"`
	ConsulAddr  string `env:"CONSUL_HTTP_ADDR"`
	NATSURL     string `env:"NATS_URL"`

	LogLevel  string `env:"NSU_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"NSU_LOG_PRETTY" envDefault:"true"`

	Rules Rules
}

// Client is the configuration of cmd/client.
type Client struct {
	Host string `env:"NSU_HOST" envDefault:"localhost"`
	Port int    `env:"NSU_PORT" envDefault:"8888"`

	// When set and Host is empty, the server address is looked up in Consul.
	ServiceName string `env:"NSU_SERVICE_NAME" envDefault:"nsulife-session"`
	ConsulAddr  string `env:"CONSUL_HTTP_ADDR"`
	// ServerID pins discovery to one registered instance, e.g. nsulife-session-node-a.
	ServerID string `env:"NSU_SERVER_ID"`

	MoveRate   float64       `env:"NSU_MOVE_RATE" envDefault:"10"`
	ThinkTime  time.Duration `env:"NSU_THINK_TIME" envDefault:"1s"`
	SinglePlay bool          `env:"NSU_SINGLE_PLAYER" envDefault:"false"`

	LogLevel  string `env:"NSU_LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"NSU_LOG_PRETTY" envDefault:"true"`

	Rules Rules
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer reads an optional .env file and then the environment.
func LoadServer(dotenv string) (*Server, error) {
	if err := loadDotenv(dotenv); err != nil {
		return nil, err
	}
	var cfg Server
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads an optional .env file and then the environment.
func LoadClient(dotenv string) (*Client, error) {
	if err := loadDotenv(dotenv); err != nil {
		return nil, err
	}
	var cfg Client
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	return &cfg, nil
}

// A missing file is not an error; variables already set win over the file.
func loadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
