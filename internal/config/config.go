package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Server struct {
	Port               string `json:"port" mapstructure:"port"`
	RequestTimeoutSec  int    `json:"request_timeout_sec" mapstructure:"request_timeout_sec"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec" mapstructure:"shutdown_timeout_sec"`
	MaxBodyBytes       int64  `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

type Log struct {
	Level string `json:"level" mapstructure:"level"`
}

type Bitskins struct {
	Endpoint     string `json:"endpoint" mapstructure:"endpoint"`
	APIKey       string `json:"api_key" mapstructure:"api_key"`
	Secret       string `json:"secret" mapstructure:"secret"`
	AppID        int    `json:"app_id" mapstructure:"app_id"`
	SearchLimit  int    `json:"search_limit" mapstructure:"search_limit"`
	HistoryLimit int    `json:"history_limit" mapstructure:"history_limit"`
	RetryShifts  []int  `json:"retry_shifts" mapstructure:"retry_shifts"`
	TimeStepSec  int    `json:"time_step_sec" mapstructure:"time_step_sec"`
}

type CSFloat struct {
	Endpoint             string `json:"endpoint" mapstructure:"endpoint"`
	APIKey               string `json:"api_key" mapstructure:"api_key"`
	MaxRequestsPerMinute int    `json:"max_requests_per_minute" mapstructure:"max_requests_per_minute"`
	Burst                int    `json:"burst" mapstructure:"burst"`
	MaxConcurrency       int    `json:"max_concurrency" mapstructure:"max_concurrency"`
	LookupTimeoutSec     int    `json:"lookup_timeout_sec" mapstructure:"lookup_timeout_sec"`
}

type Steam struct {
	Endpoint              string `json:"endpoint" mapstructure:"endpoint"`
	LoginSecure           string `json:"login_secure" mapstructure:"login_secure"`
	Currency              int    `json:"currency" mapstructure:"currency"`
	Country               string `json:"country" mapstructure:"country"`
	MinRequestIntervalSec int    `json:"min_request_interval_sec" mapstructure:"min_request_interval_sec"`
	MaxPoints             int    `json:"max_points" mapstructure:"max_points"`
	CacheTTLSeconds       int    `json:"cache_ttl_sec" mapstructure:"cache_ttl_sec"`
	CacheMaxItems         int    `json:"cache_max_items" mapstructure:"cache_max_items"`
}

type FX struct {
	Endpoint           string `json:"endpoint" mapstructure:"endpoint"`
	DefaultRate        string `json:"default_rate" mapstructure:"default_rate"`
	RefreshIntervalSec int    `json:"refresh_interval_sec" mapstructure:"refresh_interval_sec"`
}

type Catalog struct {
	Endpoint           string `json:"endpoint" mapstructure:"endpoint"`
	File               string `json:"file" mapstructure:"file"`
	RefreshIntervalSec int    `json:"refresh_interval_sec" mapstructure:"refresh_interval_sec"`
}

// Cache selects the shared store for cached marketplace answers. An empty
// RedisAddr keeps entries in process memory.
type Cache struct {
	RedisAddr     string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `json:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" mapstructure:"redis_db"`
	Prefix        string `json:"prefix" mapstructure:"prefix"`
}

type Config struct {
	Server   Server   `json:"server" mapstructure:"server"`
	Log      Log      `json:"log" mapstructure:"log"`
	Bitskins Bitskins `json:"bitskins" mapstructure:"bitskins"`
	CSFloat  CSFloat  `json:"csfloat" mapstructure:"csfloat"`
	Steam    Steam    `json:"steam" mapstructure:"steam"`
	FX       FX       `json:"fx" mapstructure:"fx"`
	Catalog  Catalog  `json:"catalog" mapstructure:"catalog"`
	Cache    Cache    `json:"cache" mapstructure:"cache"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "3001", RequestTimeoutSec: 10, ShutdownTimeoutSec: 10, MaxBodyBytes: 1 << 20},
		Log:    Log{Level: "info"},
		Bitskins: Bitskins{
			Endpoint:     "https://api.bitskins.com",
			AppID:        730,
			SearchLimit:  10,
			HistoryLimit: 20,
			RetryShifts:  []int{0, -1, 1},
			TimeStepSec:  30,
		},
		CSFloat: CSFloat{
			Endpoint:             "https://csfloat.com/api/v1",
			MaxRequestsPerMinute: 60,
			Burst:                5,
			MaxConcurrency:       5,
			LookupTimeoutSec:     8,
		},
		Steam: Steam{
			Endpoint:              "https://steamcommunity.com/market",
			Currency:              7,
			Country:               "BR",
			MinRequestIntervalSec: 3,
			MaxPoints:             90,
			CacheTTLSeconds:       0,
			CacheMaxItems:         1000,
		},
		FX: FX{
			Endpoint:           "https://economia.awesomeapi.com.br/last/USD-BRL",
			DefaultRate:        "5.50",
			RefreshIntervalSec: 3600,
		},
		Catalog: Catalog{
			Endpoint:           "https://raw.githubusercontent.com/ByMykel/CSGO-API/main/public/api/en/skins_not_grouped.json",
			RefreshIntervalSec: 24 * 3600,
		},
		Cache: Cache{Prefix: "skinwatch:"},
	}
}

// envBindings maps config keys to the environment variables that override
// them. Any key can also be set as SKINWATCH_<SECTION>_<FIELD>.
var envBindings = map[string][]string{
	"server.port":                     {"PORT"},
	"server.request_timeout_sec":      {"REQUEST_TIMEOUT_SEC"},
	"log.level":                       {"LOG_LEVEL"},
	"bitskins.api_key":                {"BITSKINS_API_KEY"},
	"bitskins.secret":                 {"BITSKINS_SECRET", "BITSKINS_2FA_SECRET"},
	"bitskins.endpoint":               {"BITSKINS_ENDPOINT"},
	"bitskins.retry_shifts":           {"BITSKINS_RETRY_SHIFTS"},
	"csfloat.api_key":                 {"CSFLOAT_API_KEY"},
	"csfloat.endpoint":                {"CSFLOAT_ENDPOINT"},
	"csfloat.max_requests_per_minute": {"CSFLOAT_MAX_RPM"},
	"steam.login_secure":              {"STEAM_LOGIN_SECURE"},
	"steam.cache_ttl_sec":             {"STEAM_CACHE_TTL_SEC"},
	"fx.endpoint":                     {"FX_ENDPOINT"},
	"fx.default_rate":                 {"FX_DEFAULT_RATE"},
	"catalog.file":                    {"CATALOG_FILE"},
	"cache.redis_addr":                {"REDIS_ADDR"},
	"cache.redis_password":            {"REDIS_PASSWORD"},
}

// Load reads JSON config from path over the defaults. If path is empty the
// CONFIG_FILE variable is used, then ./config.json when present. A missing
// file is not an error. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("json")
	base, err := json.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(base)); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		if _, err := os.Stat("config.json"); err == nil {
			path = "config.json"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := v.MergeConfig(bytes.NewReader(b)); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SKINWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return cfg, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration the process must not start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Bitskins.APIKey) == "" {
		errs = append(errs, errors.New("bitskins.api_key is required (BITSKINS_API_KEY)"))
	}
	if strings.TrimSpace(c.Bitskins.Secret) == "" {
		errs = append(errs, errors.New("bitskins.secret is required (BITSKINS_SECRET)"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is empty"))
	}
	if rate, err := decimal.NewFromString(c.FX.DefaultRate); err != nil || !rate.IsPositive() {
		errs = append(errs, fmt.Errorf("fx.default_rate %q is not a positive number", c.FX.DefaultRate))
	}
	if c.Bitskins.TimeStepSec < 0 {
		errs = append(errs, errors.New("bitskins.time_step_sec is negative"))
	}
	return errors.Join(errs...)
}

// Seconds converts a seconds setting, substituting def when it is not
// positive.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// Rate parses the fallback exchange rate.
func (f FX) Rate() decimal.Decimal {
	r, err := decimal.NewFromString(f.DefaultRate)
	if err != nil || !r.IsPositive() {
		return decimal.RequireFromString("5.50")
	}
	return r
}
