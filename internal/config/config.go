package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	DayStart           string   `mapstructure:"DAY_START"`
	DayEnd             string   `mapstructure:"DAY_END"`
	SlotMinutes        int      `mapstructure:"SLOT_MINUTES"`
	ProposalTTLMinutes int      `mapstructure:"PROPOSAL_TTL_MINUTES"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("DAY_START", "08:00")
	v.SetDefault("DAY_END", "18:00")
	v.SetDefault("SLOT_MINUTES", 30)
	v.SetDefault("PROPOSAL_TTL_MINUTES", 15)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("DAY_START")
	v.BindEnv("DAY_END")
	v.BindEnv("SLOT_MINUTES")
	v.BindEnv("PROPOSAL_TTL_MINUTES")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ProposalTTL returns the pending-confirmation lifetime as a duration.
func (c *Config) ProposalTTL() time.Duration {
	return time.Duration(c.ProposalTTLMinutes) * time.Minute
}

// Validate checks that the configuration describes a usable working day:
// DAY_START and DAY_END must be HH:MM clock times with start before end,
// and SLOT_MINUTES must divide the window evenly.
func (c *Config) Validate() error {
	start, err := time.Parse("15:04", c.DayStart)
	if err != nil {
		return fmt.Errorf("DAY_START must be a HH:MM clock time, got %q", c.DayStart)
	}
	end, err := time.Parse("15:04", c.DayEnd)
	if err != nil {
		return fmt.Errorf("DAY_END must be a HH:MM clock time, got %q", c.DayEnd)
	}
	if !end.After(start) {
		return fmt.Errorf("DAY_END (%s) must be after DAY_START (%s)", c.DayEnd, c.DayStart)
	}
	if c.SlotMinutes <= 0 {
		return fmt.Errorf("SLOT_MINUTES must be positive, got %d", c.SlotMinutes)
	}
	window := int(end.Sub(start) / time.Minute)
	if window%c.SlotMinutes != 0 {
		return fmt.Errorf("SLOT_MINUTES (%d) must divide the %d-minute working day evenly", c.SlotMinutes, window)
	}

	if c.ProposalTTLMinutes <= 0 {
		return fmt.Errorf("PROPOSAL_TTL_MINUTES must be positive, got %d", c.ProposalTTLMinutes)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst)
	}
	return nil
}
