package appconf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileConfig is the YAML shape of a config file. Zero values leave defaults untouched.
type FileConfig struct {
	Port            int      `yaml:"port"`
	Env             string   `yaml:"env"`
	ApiKeys         []string `yaml:"api-keys"`
	Verbose         bool     `yaml:"verbose"`
	RateLimit       int      `yaml:"rate-limit"`
	DBPath          string   `yaml:"db-path"`
	SeedPath        string   `yaml:"seed-path"`
	GTFSPath        string   `yaml:"gtfs-path"`
	ServiceTimezone string   `yaml:"service-timezone"`

	Planner struct {
		SearchRadiusKm      float64 `yaml:"search-radius-km"`
		CommonLinesRadiusKm float64 `yaml:"common-lines-radius-km"`
		NearestStopsLimit   int     `yaml:"nearest-stops-limit"`
		SafetyBuffer        string  `yaml:"safety-buffer"`
		ExternalTimeout     string  `yaml:"external-timeout"`
	} `yaml:"planner"`

	Maps struct {
		APIKey string `yaml:"api-key"`
		Region string `yaml:"region"`
	} `yaml:"maps"`

	LLM struct {
		APIKey string `yaml:"api-key"`
		Model  string `yaml:"model"`
	} `yaml:"llm"`

	Cache struct {
		Size      int    `yaml:"size"`
		RedisAddr string `yaml:"redis-addr"`
		RedisDB   int    `yaml:"redis-db"`
	} `yaml:"cache"`
}

// LoadFromFile reads a YAML config file.
func LoadFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &fc, nil
}

// ToAppConfig layers the file values over Default().
func (fc FileConfig) ToAppConfig() (Config, error) {
	cfg := Default()
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.Env != "" {
		cfg.Env = EnvFlagToEnvironment(fc.Env)
	}
	if len(fc.ApiKeys) > 0 {
		cfg.ApiKeys = fc.ApiKeys
	}
	cfg.Verbose = fc.Verbose
	if fc.RateLimit != 0 {
		cfg.RateLimit = fc.RateLimit
	}
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.SeedPath, fc.SeedPath)
	setString(&cfg.GTFSPath, fc.GTFSPath)
	setString(&cfg.ServiceTimezone, fc.ServiceTimezone)

	if fc.Planner.SearchRadiusKm > 0 {
		cfg.Planner.SearchRadiusKm = fc.Planner.SearchRadiusKm
	}
	if fc.Planner.CommonLinesRadiusKm > 0 {
		cfg.Planner.CommonLinesRadiusKm = fc.Planner.CommonLinesRadiusKm
	}
	if fc.Planner.NearestStopsLimit > 0 {
		cfg.Planner.NearestStopsLimit = fc.Planner.NearestStopsLimit
	}
	if err := setDuration(&cfg.Planner.SafetyBuffer, fc.Planner.SafetyBuffer); err != nil {
		return Config{}, fmt.Errorf("planner.safety-buffer: %w", err)
	}
	if err := setDuration(&cfg.Planner.ExternalTimeout, fc.Planner.ExternalTimeout); err != nil {
		return Config{}, fmt.Errorf("planner.external-timeout: %w", err)
	}

	setString(&cfg.Maps.APIKey, fc.Maps.APIKey)
	setString(&cfg.Maps.Region, fc.Maps.Region)
	setString(&cfg.LLM.APIKey, fc.LLM.APIKey)
	setString(&cfg.LLM.Model, fc.LLM.Model)

	if fc.Cache.Size > 0 {
		cfg.Cache.Size = fc.Cache.Size
	}
	setString(&cfg.Cache.RedisAddr, fc.Cache.RedisAddr)
	cfg.Cache.RedisDB = fc.Cache.RedisDB

	return cfg, nil
}

// Load builds the configuration from CONFIG_FILE (optional), then a .env file and the
// process environment, and validates the result.
func Load() (Config, error) {
	return LoadWithFile(os.Getenv("CONFIG_FILE"))
}

// LoadWithFile is Load with an explicit config file path. Environment variables still
// override the file.
func LoadWithFile(path string) (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		fc, err := LoadFromFile(path)
		if err != nil {
			return Config{}, err
		}
		if cfg, err = fc.ToAppConfig(); err != nil {
			return Config{}, err
		}
	}

	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides cfg with the environment variables reported by lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) string {
		if v, ok := lookup(key); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}

	if v := get("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Port = port
	}
	if v := get("ENV"); v != "" {
		cfg.Env = EnvFlagToEnvironment(v)
	}
	if v := get("API_KEYS"); v != "" {
		cfg.ApiKeys = ParseAPIKeys(v)
	}
	if v := get("VERBOSE"); v != "" {
		cfg.Verbose, _ = strconv.ParseBool(v)
	}
	if v := get("RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT: %q", v)
		}
		cfg.RateLimit = n
	}
	setString(&cfg.DBPath, get("DB_PATH"))
	setString(&cfg.SeedPath, get("SEED_PATH"))
	setString(&cfg.GTFSPath, get("GTFS_PATH"))
	setString(&cfg.ServiceTimezone, get("SERVICE_TIMEZONE"))

	floats := map[string]*float64{
		"SEARCH_RADIUS_KM":       &cfg.Planner.SearchRadiusKm,
		"COMMON_LINES_RADIUS_KM": &cfg.Planner.CommonLinesRadiusKm,
	}
	for key, dst := range floats {
		if v := get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid %s: %q", key, v)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"NEAREST_STOPS_LIMIT": &cfg.Planner.NearestStopsLimit,
		"PREDICTION_WORKERS":  &cfg.Planner.PredictionWorkers,
		"CACHE_SIZE":          &cfg.Cache.Size,
		"REDIS_DB":            &cfg.Cache.RedisDB,
	}
	for key, dst := range ints {
		if v := get(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %q", key, v)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"SAFETY_BUFFER":     &cfg.Planner.SafetyBuffer,
		"EXTERNAL_TIMEOUT":  &cfg.Planner.ExternalTimeout,
		"GEOCODE_CACHE_TTL": &cfg.Cache.GeocodeTTL,
		"TRAVEL_CACHE_TTL":  &cfg.Cache.TravelTTL,
	}
	for key, dst := range durations {
		if err := setDuration(dst, get(key)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	setString(&cfg.Maps.APIKey, get("MAPS_API_KEY"))
	setString(&cfg.Maps.Region, get("MAPS_REGION"))
	setString(&cfg.LLM.APIKey, get("GEMINI_API_KEY"))
	setString(&cfg.LLM.Model, get("GEMINI_MODEL"))
	setString(&cfg.Cache.RedisAddr, get("REDIS_ADDR"))
	setString(&cfg.Cache.RedisPassword, get("REDIS_PASSWORD"))

	return nil
}

// ParseAPIKeys splits a comma separated key list, trimming whitespace around each key.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	return keys
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
