package appconf

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // service timezone must resolve on minimal images

	"github.com/go-playground/validator/v10"
)

type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps the -env flag / ENV variable to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

// Config holds the settings shared by the HTTP server and the planner.
type Config struct {
	Port            int `validate:"gte=0,lte=65535"`
	Env             Environment
	ApiKeys         []string
	Verbose         bool
	RateLimit       int    `validate:"gte=0"`
	DBPath          string `validate:"required"`
	SeedPath        string
	GTFSPath        string
	ServiceTimezone string `validate:"required,timezone"`

	Planner PlannerConfig
	Maps    MapsConfig
	LLM     LLMConfig
	Cache   CacheConfig
}

type PlannerConfig struct {
	// SearchRadiusKm bounds the stops considered around the rider and the destination.
	SearchRadiusKm      float64       `validate:"gt=0"`
	CommonLinesRadiusKm float64       `validate:"gt=0"`
	NearestStopsLimit   int           `validate:"gt=0"`
	SafetyBuffer        time.Duration `validate:"gte=0"`
	ExternalTimeout     time.Duration `validate:"gt=0"`
	PredictionWorkers   int           `validate:"gt=0"`
}

type MapsConfig struct {
	APIKey string
	Region string
}

type LLMConfig struct {
	APIKey string
	Model  string `validate:"required"`
}

type CacheConfig struct {
	Size          int `validate:"gt=0"`
	GeocodeTTL    time.Duration
	TravelTTL     time.Duration
	RedisAddr     string `validate:"omitempty,hostname_port"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Port:            4000,
		Env:             Development,
		RateLimit:       100,
		DBPath:          "./saquabus.db",
		ServiceTimezone: "America/Sao_Paulo",
		Planner: PlannerConfig{
			SearchRadiusKm:      1.5,
			CommonLinesRadiusKm: 0.7,
			NearestStopsLimit:   10,
			SafetyBuffer:        2 * time.Minute,
			ExternalTimeout:     8 * time.Second,
			PredictionWorkers:   4,
		},
		Maps: MapsConfig{Region: "br"},
		LLM:  LLMConfig{Model: "gemini-2.0-flash"},
		Cache: CacheConfig{
			Size:       10000,
			GeocodeTTL: 24 * time.Hour,
			TravelTTL:  5 * time.Minute,
		},
	}
}

// Location resolves ServiceTimezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ServiceTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid service timezone %q: %w", c.ServiceTimezone, err)
	}
	return loc, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
