package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIURL     string
	WeatherAPITimeout time.Duration

	WikiAPIURL         string
	WikiRESTURL        string
	WikiUserAgent      string
	WikiSearchTimeout  time.Duration
	WikiGeoTimeout     time.Duration
	WikiSummaryTimeout time.Duration

	// GeminiAPIKey may be empty; AI features then fall back to encyclopedia and canned replies.
	GeminiAPIKey       string
	LLMModelOverride   string
	LLMPreferredModels []string
	LLMModelKeywords   []string
	LLMAttempts        int
	LLMTimeout         time.Duration

	PlacesKeywords []string

	SessionBackend        string // "in_memory", "memcached" or "redis"
	SessionTTL            time.Duration
	SessionSecureCookies  bool
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int

	CityMaxLen    int
	MessageMaxLen int

	RequestTimeout  time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	ShutdownTimeout time.Duration

	BreakerFailureThreshold int
	BreakerCooldown         time.Duration

	HealthWindow         time.Duration
	OverloadThresholdPct int
	DegradedErrorPct     int
	DegradedMinRequests  int

	TrackedCities []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Wiki struct {
		APIURL         string `yaml:"api_url"`
		RESTURL        string `yaml:"rest_url"`
		UserAgent      string `yaml:"user_agent"`
		SearchTimeout  string `yaml:"search_timeout"`
		GeoTimeout     string `yaml:"geo_timeout"`
		SummaryTimeout string `yaml:"summary_timeout"`
	} `yaml:"wiki"`

	LLM struct {
		ModelOverride   string   `yaml:"model_override"`
		PreferredModels []string `yaml:"preferred_models"`
		ModelKeywords   []string `yaml:"model_keywords"`
		Attempts        int      `yaml:"attempts"`
		Timeout         string   `yaml:"timeout"`
	} `yaml:"llm"`

	Places struct {
		AttractionKeywords []string `yaml:"attraction_keywords"`
	} `yaml:"places"`

	Session struct {
		Backend       string `yaml:"backend"`
		TTL           string `yaml:"ttl"`
		SecureCookies bool   `yaml:"secure_cookies"`
		Memcached     struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"session"`

	Input struct {
		CityMaxLen    int `yaml:"city_max_len"`
		MessageMaxLen int `yaml:"message_max_len"`
	} `yaml:"input"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerCooldown         string `yaml:"breaker_cooldown"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Health struct {
		Window               string `yaml:"window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
		DegradedMinRequests  int    `yaml:"degraded_min_requests"`
	} `yaml:"health"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	GeminiAPIKey  string `yaml:"gemini_api_key"`
	RedisPassword string `yaml:"redis_password"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml
// under the working directory. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFrom(cwd)
}

// LoadFrom is Load rooted at dir.
func LoadFrom(dir string) (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(dir, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := loadSecrets(filepath.Join(dir, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "10000")

	cfg.WeatherAPIURL = firstNonEmpty(fc.WeatherAPI.URL, "https://wttr.in")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 8*time.Second)

	cfg.WikiAPIURL = firstNonEmpty(fc.Wiki.APIURL, "https://en.wikipedia.org/w/api.php")
	cfg.WikiRESTURL = firstNonEmpty(fc.Wiki.RESTURL, "https://en.wikipedia.org/api/rest_v1")
	cfg.WikiUserAgent = firstNonEmpty(fc.Wiki.UserAgent, "tour-guide-service/1.0")
	cfg.WikiSearchTimeout = parseDuration(fc.Wiki.SearchTimeout, 6*time.Second)
	cfg.WikiGeoTimeout = parseDuration(fc.Wiki.GeoTimeout, 8*time.Second)
	cfg.WikiSummaryTimeout = parseDuration(fc.Wiki.SummaryTimeout, 6*time.Second)

	cfg.GeminiAPIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), sec.GeminiAPIKey)
	cfg.LLMModelOverride = firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_MODEL")), fc.LLM.ModelOverride)
	cfg.LLMPreferredModels = fc.LLM.PreferredModels
	cfg.LLMModelKeywords = fc.LLM.ModelKeywords
	cfg.LLMAttempts = fc.LLM.Attempts
	if cfg.LLMAttempts <= 0 {
		cfg.LLMAttempts = 3
	}
	cfg.LLMTimeout = parseDuration(fc.LLM.Timeout, 20*time.Second)

	cfg.PlacesKeywords = fc.Places.AttractionKeywords

	cfg.SessionBackend = strings.ToLower(firstNonEmpty(
		strings.TrimSpace(os.Getenv("SESSION_BACKEND")),
		strings.TrimSpace(fc.Session.Backend),
		"in_memory",
	))
	cfg.SessionTTL = parseDuration(fc.Session.TTL, 30*time.Minute)
	cfg.SessionSecureCookies = fc.Session.SecureCookies
	cfg.MemcachedAddrs = firstNonEmpty(
		strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")),
		strings.TrimSpace(fc.Session.Memcached.Addrs),
		"localhost:11211",
	)
	cfg.MemcachedTimeout = parseDuration(fc.Session.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Session.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisAddr = firstNonEmpty(strings.TrimSpace(os.Getenv("REDIS_ADDR")), strings.TrimSpace(fc.Session.Redis.Addr))
	cfg.RedisPassword = firstNonEmpty(os.Getenv("REDIS_PASSWORD"), sec.RedisPassword)
	cfg.RedisDB = fc.Session.Redis.DB
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer, got %q", v)
		}
		cfg.RedisDB = db
	}

	// input caps are opt-in; 0 accepts any length
	cfg.CityMaxLen = max(fc.Input.CityMaxLen, 0)
	cfg.MessageMaxLen = max(fc.Input.MessageMaxLen, 0)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 90*time.Second)
	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	cfg.BreakerFailureThreshold = fc.Reliability.BreakerFailureThreshold
	if cfg.BreakerFailureThreshold <= 0 {
		cfg.BreakerFailureThreshold = 5
	}
	cfg.BreakerCooldown = parseDuration(fc.Reliability.BreakerCooldown, 30*time.Second)
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)

	cfg.HealthWindow = parseDuration(fc.Health.Window, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Health.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 20
	}
	cfg.DegradedMinRequests = fc.Health.DegradedMinRequests
	if cfg.DegradedMinRequests <= 0 {
		cfg.DegradedMinRequests = 10
	}
	cfg.TrackedCities = fc.Metrics.TrackedCities

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OverloadRequests is the request count per HealthWindow above which /health reports overloaded:
// OverloadThresholdPct of what the rate limiter admits in one window.
func (c *Config) OverloadRequests() int {
	return int(float64(c.RateLimitRPS) * c.HealthWindow.Seconds() * float64(c.OverloadThresholdPct) / 100)
}

// DegradedErrorRate is DegradedErrorPct as a fraction.
func (c *Config) DegradedErrorRate() float64 {
	return float64(c.DegradedErrorPct) / 100
}

func loadSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	sec.GeminiAPIKey = strings.TrimSpace(sec.GeminiAPIKey)
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is for validate to reject.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate rejects unusable values. RequestTimeout is raised above WeatherAPITimeout when needed.
func validate(cfg *Config) error {
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout {
		cfg.RequestTimeout = cfg.WeatherAPITimeout + time.Second
	}
	switch cfg.SessionBackend {
	case "in_memory", "memcached":
	case "redis":
		if cfg.RedisAddr == "" {
			return fmt.Errorf("session.redis.addr (or REDIS_ADDR) required for redis backend")
		}
	default:
		return fmt.Errorf("session.backend must be in_memory, memcached or redis, got %q", cfg.SessionBackend)
	}
	return nil
}
