// Package settings loads application settings from defaults, an optional
// config file and TANKBATTLE_* environment variables, in increasing order of
// precedence.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

// EnvPrefix prefixes every environment override, e.g. TANKBATTLE_SERVER_PORT
const EnvPrefix = "TANKBATTLE"

// ServerSettings configure the HTTP listener
type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr is the host:port the server binds
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NgrokSettings configure the optional public tunnel
type NgrokSettings struct {
	Enabled   bool   `mapstructure:"enabled"`
	AuthToken string `mapstructure:"authToken"`
	Domain    string `mapstructure:"domain"`
}

// RuleSettings mirror engine.Rules plus the cosmetic pacing delay
type RuleSettings struct {
	InitialShells int           `mapstructure:"initialShells"`
	ShootCooldown int           `mapstructure:"shootCooldown"`
	MaxTurns      int           `mapstructure:"maxTurns"`
	AmmoTimeout   int           `mapstructure:"ammoTimeout"`
	ShellRange    int           `mapstructure:"shellRange"`
	TurnDelay     time.Duration `mapstructure:"turnDelay"`
}

// Rules converts to the engine rule set
func (r RuleSettings) Rules() engine.Rules {
	return engine.Rules{
		InitialShells: r.InitialShells,
		ShootCooldown: r.ShootCooldown,
		MaxTurns:      r.MaxTurns,
		AmmoTimeout:   r.AmmoTimeout,
		ShellRange:    r.ShellRange,
	}
}

// Settings is the full application configuration
type Settings struct {
	LogLevel       string         `mapstructure:"logLevel"`
	BoardsDir      string         `mapstructure:"boardsDir"`
	SessionsDir    string         `mapstructure:"sessionsDir"`
	ResultsDB      string         `mapstructure:"resultsDb"`
	SessionMaxAge  time.Duration  `mapstructure:"sessionMaxAge"`
	Server         ServerSettings `mapstructure:"server"`
	Ngrok          NgrokSettings  `mapstructure:"ngrok"`
	Rules          RuleSettings   `mapstructure:"rules"`
	ConfigFileUsed string         `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("boardsDir", "boards")
	v.SetDefault("sessionsDir", "sessions")
	v.SetDefault("resultsDb", "results.db")
	v.SetDefault("sessionMaxAge", 24*time.Hour)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)

	v.SetDefault("ngrok.enabled", false)
	v.SetDefault("ngrok.authToken", "")
	v.SetDefault("ngrok.domain", "")

	rules := engine.DefaultRules()
	v.SetDefault("rules.initialShells", rules.InitialShells)
	v.SetDefault("rules.shootCooldown", rules.ShootCooldown)
	v.SetDefault("rules.maxTurns", rules.MaxTurns)
	v.SetDefault("rules.ammoTimeout", rules.AmmoTimeout)
	v.SetDefault("rules.shellRange", rules.ShellRange)
	v.SetDefault("rules.turnDelay", time.Duration(0))
}

// Load reads settings. An empty path looks for tankbattle.{json,yaml,toml}
// in the working directory and tolerates its absence; an explicit path must
// exist.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("tankbattle")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	s.ConfigFileUsed = v.ConfigFileUsed()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the server cannot start with
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", s.Server.Port)
	}
	if s.BoardsDir == "" {
		return errors.New("boardsDir must not be empty")
	}
	if s.Rules.MaxTurns < 0 || s.Rules.AmmoTimeout < 0 || s.Rules.InitialShells < 0 || s.Rules.ShootCooldown < 0 || s.Rules.ShellRange < 0 {
		return errors.New("rules must not be negative")
	}
	return nil
}
