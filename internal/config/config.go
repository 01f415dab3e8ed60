package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"daily-trivia-service/internal/app"
	"daily-trivia-service/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"rabbitmq"`
	QuestionSets struct {
		TTL   string   `yaml:"ttl"`
		Files []string `yaml:"files"`
	} `yaml:"questionSets"`
	Game Game `yaml:"game"`
}

// Game holds the tunable game economy. Missing values keep the defaults of
// app.DefaultRules.
type Game struct {
	Timezone            string         `yaml:"timezone"`
	TimeLimitSeconds    int            `yaml:"timeLimitSeconds"`
	MaxTimeBonus        *int           `yaml:"maxTimeBonus"`
	BonusDivisor        int            `yaml:"bonusDivisor"`
	ParticipationPoints *int           `yaml:"participationPoints"`
	PlacementPoints     map[int]int    `yaml:"placementPoints"`
	DifficultyPoints    map[string]int `yaml:"difficultyPoints"`
	PointValue          string         `yaml:"pointValue"`
	LeaderboardLimit    int            `yaml:"leaderboardLimit"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Rules overlays the configured values on app.DefaultRules and validates the result.
func (g Game) Rules() (app.Rules, error) {
	rules := app.DefaultRules()

	if g.Timezone != "" {
		loc, err := time.LoadLocation(g.Timezone)
		if err != nil {
			return app.Rules{}, fmt.Errorf("game timezone: %w", err)
		}
		rules.Location = loc
	}
	if g.TimeLimitSeconds > 0 {
		rules.TimeLimitSeconds = g.TimeLimitSeconds
	}
	if g.MaxTimeBonus != nil {
		rules.MaxTimeBonus = *g.MaxTimeBonus
	}
	if g.BonusDivisor != 0 {
		rules.BonusDivisor = g.BonusDivisor
	}
	if g.ParticipationPoints != nil {
		rules.ParticipationPoints = *g.ParticipationPoints
	}
	if len(g.PlacementPoints) > 0 {
		rules.PlacementPoints = g.PlacementPoints
	}
	if len(g.DifficultyPoints) > 0 {
		points := make(map[domain.Difficulty]int, len(rules.DifficultyPoints))
		for d, p := range rules.DifficultyPoints {
			points[d] = p
		}
		for raw, p := range g.DifficultyPoints {
			d := domain.Difficulty(strings.ToLower(raw))
			if !d.Valid() {
				return app.Rules{}, fmt.Errorf("unknown difficulty %q in game.difficultyPoints", raw)
			}
			points[d] = p
		}
		rules.DifficultyPoints = points
	}
	if g.PointValue != "" {
		value, err := decimal.NewFromString(g.PointValue)
		if err != nil {
			return app.Rules{}, fmt.Errorf("game point value: %w", err)
		}
		rules.PointValue = value
	}
	if g.LeaderboardLimit > 0 {
		rules.LeaderboardLimit = g.LeaderboardLimit
	}

	if err := rules.Validate(); err != nil {
		return app.Rules{}, err
	}
	return rules, nil
}
