package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	EBay       EBayConfig       `yaml:"ebay"`
	Deals      DealsConfig      `yaml:"deals"`
	Search     SearchConfig     `yaml:"search"`
	Completion CompletionConfig `yaml:"completion"`
	Cache      CacheConfig      `yaml:"cache"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Auth       AuthConfig       `yaml:"auth"`
	App        AppConfig        `yaml:"app"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type EBayConfig struct {
	ClientID            string        `yaml:"client_id"`
	ClientSecret        string        `yaml:"client_secret"` // #nosec G117 -- configuration secret field.
	Marketplace         string        `yaml:"marketplace"`
	APIBaseURL          string        `yaml:"api_base_url"`
	Timeout             time.Duration `yaml:"timeout"`
	AffiliateCampaignID string        `yaml:"affiliate_campaign_id"`
	AffiliateRotationID string        `yaml:"affiliate_rotation_id"`
}

type DealsConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Pages       []string      `yaml:"pages"`
	UserAgent   string        `yaml:"user_agent"`
	MinDiscount int           `yaml:"min_discount"`
	Timeout     time.Duration `yaml:"timeout"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
	Prewarm     string        `yaml:"prewarm"`
}

type SearchConfig struct {
	APIKey     string        `yaml:"api_key"` // #nosec G117 -- configuration secret field.
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
}

type CompletionConfig struct {
	APIKey      string        `yaml:"api_key"` // #nosec G117 -- configuration secret field.
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

type CacheConfig struct {
	Provider     string           `yaml:"provider"`
	Directory    string           `yaml:"directory"`
	TTL          CacheTTLConfig   `yaml:"ttl"`
	Redis        CacheRedisConfig `yaml:"redis"`
	Sweep        string           `yaml:"sweep"`
	ClearOnStart bool             `yaml:"clear_on_start"`
}

type CacheTTLConfig struct {
	Search time.Duration `yaml:"search"`
	Deals  time.Duration `yaml:"deals"`
}

type CacheRedisConfig struct {
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` // #nosec G117 -- configuration secret field.
	DB       int    `yaml:"db"`
	UseTLS   bool   `yaml:"tls"`
}

type ArchiveConfig struct {
	Method string             `yaml:"method"`
	Local  ArchiveLocalConfig `yaml:"local"`
	S3     ArchiveS3Config    `yaml:"s3"`
}

type ArchiveLocalConfig struct {
	Directory string `yaml:"directory"`
}

type ArchiveS3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"` // #nosec G117 -- configuration secret field.
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
}

type AuthConfig struct {
	TokenSecret string        `yaml:"token_secret"` // #nosec G117 -- configuration secret field.
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	DocsDir string `yaml:"docs_dir"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		EBay: EBayConfig{
			Marketplace:         "EBAY_US",
			APIBaseURL:          "https://api.ebay.com",
			Timeout:             15 * time.Second,
			AffiliateCampaignID: "5339117469",
			AffiliateRotationID: "711-53200-19255-0",
		},
		Deals: DealsConfig{
			BaseURL:     "https://www.ebay.com",
			Pages:       []string{"/deals", "/deals/tech", "/deals/home-garden", "/deals/fashion"},
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MinDiscount: 5,
			Timeout:     15 * time.Second,
			RatePerSec:  2,
		},
		Search: SearchConfig{
			URL:        "https://api.search.brave.com/res/v1/web/search",
			Timeout:    10 * time.Second,
			RatePerSec: 1,
		},
		Completion: CompletionConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			Temperature: 0.1,
			MaxTokens:   2500,
			Timeout:     45 * time.Second,
		},
		Cache: CacheConfig{
			Provider: "none",
			TTL: CacheTTLConfig{
				Search: 6 * time.Hour,
				Deals:  15 * time.Minute,
			},
			Sweep: "@every 1h",
		},
		Archive: ArchiveConfig{
			Method: "none",
			Local: ArchiveLocalConfig{
				Directory: "data/comparisons",
			},
		},
		Auth: AuthConfig{
			TokenTTL: 30 * 24 * time.Hour,
		},
		App: AppConfig{
			Name:    "Epic.Deals",
			DocsDir: "api/openapi",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		root, err := os.OpenRoot(filepath.Dir(path))
		if err == nil {
			defer root.Close()
			if _, err := root.Stat(filepath.Base(path)); err == nil {
				file, err := root.Open(filepath.Base(path))
				if err != nil {
					return nil, fmt.Errorf("reading config file: %w", err)
				}
				defer file.Close()
				data, err := io.ReadAll(file)
				if err != nil {
					return nil, fmt.Errorf("reading config file: %w", err)
				}

				if err := yaml.Unmarshal(data, cfg); err != nil {
					return nil, fmt.Errorf("parsing config file: %w", err)
				}
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("applying env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

type Overrides struct {
	ServerAddress      *string
	EBayClientID       *string
	EBayClientSecret   *string
	EBayMarketplace    *string
	SearchAPIKey       *string
	CompletionAPIKey   *string
	CompletionBaseURL  *string
	CompletionModel    *string
	CacheProvider      *string
	CacheDirectory     *string
	CacheRedisURL      *string
	ArchiveMethod      *string
	ArchiveLocalDir    *string
	AuthTokenSecret    *string
	DealsMinDiscount   *int
	CacheTTLSearch     *time.Duration
	CacheTTLDeals      *time.Duration
	CacheClearOnStart  *bool
	CompletionTimeout  *time.Duration
	SearchTimeout      *time.Duration
	MarketplaceTimeout *time.Duration
}

func (c *Config) ApplyOverrides(overrides Overrides) error {
	if overrides.ServerAddress != nil {
		c.Server.Address = *overrides.ServerAddress
	}
	if overrides.EBayClientID != nil {
		c.EBay.ClientID = *overrides.EBayClientID
	}
	if overrides.EBayClientSecret != nil {
		c.EBay.ClientSecret = *overrides.EBayClientSecret
	}
	if overrides.EBayMarketplace != nil {
		c.EBay.Marketplace = *overrides.EBayMarketplace
	}
	if overrides.SearchAPIKey != nil {
		c.Search.APIKey = *overrides.SearchAPIKey
	}
	if overrides.CompletionAPIKey != nil {
		c.Completion.APIKey = *overrides.CompletionAPIKey
	}
	if overrides.CompletionBaseURL != nil {
		c.Completion.BaseURL = *overrides.CompletionBaseURL
	}
	if overrides.CompletionModel != nil {
		c.Completion.Model = *overrides.CompletionModel
	}
	if overrides.CacheProvider != nil {
		c.Cache.Provider = *overrides.CacheProvider
	}
	if overrides.CacheDirectory != nil {
		c.Cache.Directory = *overrides.CacheDirectory
	}
	if overrides.CacheRedisURL != nil {
		c.Cache.Redis.URL = *overrides.CacheRedisURL
		if err := applyRedisURL(&c.Cache.Redis); err != nil {
			return err
		}
	}
	if overrides.ArchiveMethod != nil {
		c.Archive.Method = *overrides.ArchiveMethod
	}
	if overrides.ArchiveLocalDir != nil {
		c.Archive.Local.Directory = *overrides.ArchiveLocalDir
	}
	if overrides.AuthTokenSecret != nil {
		c.Auth.TokenSecret = *overrides.AuthTokenSecret
	}
	if overrides.DealsMinDiscount != nil {
		c.Deals.MinDiscount = *overrides.DealsMinDiscount
	}
	if overrides.CacheTTLSearch != nil {
		c.Cache.TTL.Search = *overrides.CacheTTLSearch
	}
	if overrides.CacheTTLDeals != nil {
		c.Cache.TTL.Deals = *overrides.CacheTTLDeals
	}
	if overrides.CacheClearOnStart != nil {
		c.Cache.ClearOnStart = *overrides.CacheClearOnStart
	}
	if overrides.CompletionTimeout != nil {
		c.Completion.Timeout = *overrides.CompletionTimeout
	}
	if overrides.SearchTimeout != nil {
		c.Search.Timeout = *overrides.SearchTimeout
	}
	if overrides.MarketplaceTimeout != nil {
		c.EBay.Timeout = *overrides.MarketplaceTimeout
	}

	return c.validate()
}

func (c *Config) applyEnv() error {
	addressSet := false
	if value, ok := lookupEnv("EPICDEALS_SERVER_ADDRESS"); ok {
		c.Server.Address = value
		addressSet = true
	}
	serverHost, hostSet := lookupEnv("EPICDEALS_SERVER_HOST")
	serverPort, portSet := lookupEnv("EPICDEALS_SERVER_PORT")
	if value, ok := lookupEnv("HOST"); ok && !hostSet {
		serverHost = value
		hostSet = true
	}
	if value, ok := lookupEnv("PORT"); ok && !portSet {
		serverPort = value
		portSet = true
	}
	if !addressSet && (hostSet || portSet) {
		if serverHost == "" {
			serverHost = "0.0.0.0"
		}
		if serverPort == "" {
			serverPort = "8080"
		}
		c.Server.Address = fmt.Sprintf("%s:%s", serverHost, serverPort)
	}
	if err := envDuration("EPICDEALS_SERVER_READ_TIMEOUT", &c.Server.ReadTimeout); err != nil {
		return err
	}
	if err := envDuration("EPICDEALS_SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout); err != nil {
		return err
	}
	if err := envDuration("EPICDEALS_SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout); err != nil {
		return err
	}

	if value, ok := lookupEnv("EPICDEALS_EBAY_CLIENT_ID", "EBAY_APP_ID", "EBAY_CLIENT_ID"); ok {
		c.EBay.ClientID = value
	}
	if value, ok := lookupEnv("EPICDEALS_EBAY_CLIENT_SECRET", "EBAY_CERT_ID", "EBAY_CLIENT_SECRET"); ok {
		c.EBay.ClientSecret = value
	}
	if value, ok := lookupEnv("EPICDEALS_EBAY_MARKETPLACE"); ok {
		c.EBay.Marketplace = value
	}
	if value, ok := lookupEnv("EPICDEALS_EBAY_API_BASE_URL"); ok {
		c.EBay.APIBaseURL = value
	}
	if err := envDuration("EPICDEALS_EBAY_TIMEOUT", &c.EBay.Timeout); err != nil {
		return err
	}
	if value, ok := lookupEnv("EPICDEALS_EBAY_AFFILIATE_CAMPAIGN_ID"); ok {
		c.EBay.AffiliateCampaignID = value
	}
	if value, ok := lookupEnv("EPICDEALS_EBAY_AFFILIATE_ROTATION_ID"); ok {
		c.EBay.AffiliateRotationID = value
	}

	if value, ok := lookupEnv("EPICDEALS_DEALS_BASE_URL"); ok {
		c.Deals.BaseURL = value
	}
	if value, ok := lookupEnv("EPICDEALS_DEALS_PAGES"); ok {
		c.Deals.Pages = splitList(value)
	}
	if value, ok := lookupEnv("EPICDEALS_DEALS_USER_AGENT"); ok {
		c.Deals.UserAgent = value
	}
	if value, ok := lookupEnv("EPICDEALS_DEALS_MIN_DISCOUNT"); ok {
		parsed, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("EPICDEALS_DEALS_MIN_DISCOUNT: %w", err)
		}
		c.Deals.MinDiscount = parsed
	}
	if err := envDuration("EPICDEALS_DEALS_TIMEOUT", &c.Deals.Timeout); err != nil {
		return err
	}
	if value, ok := lookupEnv("EPICDEALS_DEALS_PREWARM"); ok {
		c.Deals.Prewarm = value
	}

	if value, ok := lookupEnv("EPICDEALS_SEARCH_API_KEY", "BRAVE_API_KEY"); ok {
		c.Search.APIKey = value
	}
	if value, ok := lookupEnv("EPICDEALS_SEARCH_URL"); ok {
		c.Search.URL = value
	}
	if err := envDuration("EPICDEALS_SEARCH_TIMEOUT", &c.Search.Timeout); err != nil {
		return err
	}
	if value, ok := lookupEnv("EPICDEALS_SEARCH_RATE_PER_SEC"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("EPICDEALS_SEARCH_RATE_PER_SEC: %w", err)
		}
		c.Search.RatePerSec = parsed
	}

	if value, ok := lookupEnv("EPICDEALS_COMPLETION_API_KEY", "OPENAI_API_KEY"); ok {
		c.Completion.APIKey = value
	}
	if value, ok := lookupEnv("EPICDEALS_COMPLETION_BASE_URL", "OPENAI_BASE_URL"); ok {
		c.Completion.BaseURL = value
	}
	if value, ok := lookupEnv("EPICDEALS_COMPLETION_MODEL"); ok {
		c.Completion.Model = value
	}
	if err := envDuration("EPICDEALS_COMPLETION_TIMEOUT", &c.Completion.Timeout); err != nil {
		return err
	}

	if value, ok := lookupEnv("EPICDEALS_CACHE_PROVIDER"); ok {
		c.Cache.Provider = value
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_DIRECTORY"); ok {
		c.Cache.Directory = value
	}
	if err := envDuration("EPICDEALS_CACHE_TTL_SEARCH", &c.Cache.TTL.Search); err != nil {
		return err
	}
	if err := envDuration("EPICDEALS_CACHE_TTL_DEALS", &c.Cache.TTL.Deals); err != nil {
		return err
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_REDIS_URL", "REDIS_URL"); ok {
		c.Cache.Redis.URL = value
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = value
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = value
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_REDIS_DB"); ok {
		parsed, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("EPICDEALS_CACHE_REDIS_DB: %w", err)
		}
		c.Cache.Redis.DB = parsed
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_REDIS_TLS"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("EPICDEALS_CACHE_REDIS_TLS: %w", err)
		}
		c.Cache.Redis.UseTLS = parsed
	}
	if value, ok := lookupEnv("EPICDEALS_CACHE_CLEAR_ON_START"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("EPICDEALS_CACHE_CLEAR_ON_START: %w", err)
		}
		c.Cache.ClearOnStart = parsed
	}
	if strings.TrimSpace(c.Cache.Redis.URL) != "" {
		if err := applyRedisURL(&c.Cache.Redis); err != nil {
			return err
		}
	}

	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_METHOD"); ok {
		c.Archive.Method = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_LOCAL_DIRECTORY"); ok {
		c.Archive.Local.Directory = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_BUCKET"); ok {
		c.Archive.S3.Bucket = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_REGION"); ok {
		c.Archive.S3.Region = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_ENDPOINT"); ok {
		c.Archive.S3.Endpoint = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_ACCESS_KEY_ID"); ok {
		c.Archive.S3.AccessKeyID = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_SECRET_ACCESS_KEY"); ok {
		c.Archive.S3.SecretAccessKey = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_SESSION_TOKEN"); ok {
		c.Archive.S3.SessionToken = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_PREFIX"); ok {
		c.Archive.S3.Prefix = value
	}
	if value, ok := lookupEnv("EPICDEALS_ARCHIVE_S3_PATH_STYLE"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("EPICDEALS_ARCHIVE_S3_PATH_STYLE: %w", err)
		}
		c.Archive.S3.PathStyle = parsed
	}

	if value, ok := lookupEnv("EPICDEALS_AUTH_TOKEN_SECRET"); ok {
		c.Auth.TokenSecret = value
	}
	if err := envDuration("EPICDEALS_AUTH_TOKEN_TTL", &c.Auth.TokenTTL); err != nil {
		return err
	}
	if value, ok := lookupEnv("EPICDEALS_APP_NAME"); ok {
		c.App.Name = value
	}
	if value, ok := lookupEnv("EPICDEALS_APP_DOCS_DIR"); ok {
		c.App.DocsDir = value
	}

	return nil
}

// lookupEnv returns the first non-empty value among keys.
func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		return value, true
	}
	return "", false
}

func envDuration(key string, target *time.Duration) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*target = duration
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseBool(value string) (bool, error) {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func applyRedisURL(cfg *CacheRedisConfig) error {
	if cfg == nil {
		return nil
	}
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("cache redis url: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("cache redis url: missing host")
	}
	if parsed.User != nil {
		password, ok := parsed.User.Password()
		if ok {
			cfg.Password = password
		}
	}
	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		dbIndex, err := strconv.Atoi(path)
		if err != nil {
			return fmt.Errorf("cache redis url: invalid db index")
		}
		cfg.DB = dbIndex
	}
	query := parsed.Query()
	if value := strings.ToLower(strings.TrimSpace(query.Get("tls"))); value != "" {
		parsedBool, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache redis url: invalid tls query param")
		}
		cfg.UseTLS = parsedBool
	}
	if strings.ToLower(parsed.Scheme) == "rediss" {
		cfg.UseTLS = true
	}
	if cfg.Addr == "" {
		cfg.Addr = parsed.Host
	}
	return nil
}

// CompareConfigured reports whether both keys needed by the comparison feature are present.
func (c *Config) CompareConfigured() bool {
	return strings.TrimSpace(c.Search.APIKey) != "" && strings.TrimSpace(c.Completion.APIKey) != ""
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}

	if strings.TrimSpace(c.EBay.Marketplace) == "" {
		c.EBay.Marketplace = "EBAY_US"
	}
	if c.EBay.Timeout <= 0 {
		c.EBay.Timeout = 15 * time.Second
	}
	if c.Deals.Timeout <= 0 {
		c.Deals.Timeout = 15 * time.Second
	}
	if c.Deals.MinDiscount < 0 {
		return fmt.Errorf("deals min discount must not be negative")
	}
	if len(c.Deals.Pages) == 0 {
		return fmt.Errorf("at least one deals page is required")
	}
	if c.Search.Timeout <= 0 {
		c.Search.Timeout = 10 * time.Second
	}
	if c.Completion.Timeout <= 0 {
		c.Completion.Timeout = 45 * time.Second
	}
	if strings.TrimSpace(c.Completion.Model) == "" {
		return fmt.Errorf("completion model is required")
	}

	cacheProvider := strings.ToLower(strings.TrimSpace(c.Cache.Provider))
	if cacheProvider == "" {
		cacheProvider = "none"
	}
	c.Cache.Provider = cacheProvider
	switch cacheProvider {
	case "none":
	case "sqlite":
		if strings.TrimSpace(c.Cache.Directory) == "" {
			return fmt.Errorf("cache directory is required for sqlite cache")
		}
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return fmt.Errorf("cache redis addr is required")
		}
	default:
		return fmt.Errorf("cache provider must be none, sqlite or redis")
	}
	if c.Cache.TTL.Search <= 0 {
		c.Cache.TTL.Search = 6 * time.Hour
	}
	if c.Cache.TTL.Deals <= 0 {
		c.Cache.TTL.Deals = 15 * time.Minute
	}

	method := strings.ToLower(strings.TrimSpace(c.Archive.Method))
	if method == "" {
		method = "none"
	}
	c.Archive.Method = method
	switch method {
	case "none":
	case "local":
		if strings.TrimSpace(c.Archive.Local.Directory) == "" {
			return fmt.Errorf("archive local directory is required")
		}
	case "s3":
		if strings.TrimSpace(c.Archive.S3.Bucket) == "" {
			return fmt.Errorf("archive s3 bucket is required")
		}
		if strings.TrimSpace(c.Archive.S3.Region) == "" {
			return fmt.Errorf("archive s3 region is required")
		}
	default:
		return fmt.Errorf("archive method must be none, local or s3")
	}

	if c.Auth.TokenTTL <= 0 {
		c.Auth.TokenTTL = 30 * 24 * time.Hour
	}

	return nil
}
