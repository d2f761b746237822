package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	SourceFS             = "fs"
	SourceGitHubContents = "github-contents"
	SourceGitHubTree     = "github-tree"
	SourceS3             = "s3"

	DuplicateOverwrite = "overwrite"
	DuplicateMerge     = "merge"

	defaultListen         = ":8080"
	defaultMaxDepth       = 4
	defaultWorkers        = 4
	defaultIndexTimeout   = 5 * time.Minute
	defaultSourceTimeout  = 30 * time.Second
	defaultCacheSize      = 4096
	defaultCacheTTL       = 5 * time.Minute
	defaultGitHubAPIURL   = "https://api.github.com"
	defaultGitHubRawURL   = "https://raw.githubusercontent.com"
	defaultGitHubBranch   = "main"
	defaultS3Region       = "us-east-1"
	defaultOutputFile     = "catalog.json"
	defaultObjectKey      = "catalog.json"
	defaultRetryAttempts  = 3
	defaultRetryInitial   = 200 * time.Millisecond
	defaultRetryMaxWait   = 5 * time.Second
	defaultRedisKeyPrefix = "stlcatalog"

	envGitHubToken  = "GITHUB_TOKEN"
	envS3AccessKey  = "S3_ACCESS_KEY"
	envS3SecretKey  = "S3_SECRET_KEY"
	envRedisURL     = "REDIS_URL"
	envLogLevel     = "STLCATALOG_LOG_LEVEL"
	envObjAccessKey = "OBJECT_ACCESS_KEY"
	envObjSecretKey = "OBJECT_SECRET_KEY"
)

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=1"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size" validate:"gte=1"`
	TTL     time.Duration `yaml:"ttl"`
}

type FSConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`
}

type GitHubConfig struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	APIURL string `yaml:"api_url" validate:"omitempty,url"`
	RawURL string `yaml:"raw_url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

type SourceConfig struct {
	Kind    string        `yaml:"kind" validate:"oneof=fs github-contents github-tree s3"`
	Timeout time.Duration `yaml:"timeout"`
	FS      FSConfig      `yaml:"fs"`
	GitHub  GitHubConfig  `yaml:"github"`
	S3      S3Config      `yaml:"s3"`
	Cache   CacheConfig   `yaml:"cache"`
	Retry   RetryConfig   `yaml:"retry"`
}

type ClassifierConfig struct {
	MaxDepth             int      `yaml:"max_depth" validate:"gte=1"`
	Extensions           []string `yaml:"extensions" validate:"min=1,dive,required"`
	ContentFolderAliases []string `yaml:"content_folder_aliases" validate:"dive,required"`
	ExcludeNames         []string `yaml:"exclude_names"`
	ExcludePatterns      []string `yaml:"exclude_patterns"`
	SkipHidden           *bool    `yaml:"skip_hidden"`
	DuplicatePolicy      string   `yaml:"duplicate_policy" validate:"oneof=overwrite merge"`
}

func (c *ClassifierConfig) HiddenSkipped() bool {
	return c.SkipHidden == nil || *c.SkipHidden
}

type IndexerConfig struct {
	Workers int           `yaml:"workers" validate:"gte=1"`
	Timeout time.Duration `yaml:"timeout"`
}

type ObjectConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type OutputConfig struct {
	File            string       `yaml:"file"`
	Lock            bool         `yaml:"lock"`
	ReportFile      string       `yaml:"report_file"`
	ReportHeader    string       `yaml:"report_header"`
	RedisURL        string       `yaml:"redis_url"`
	RedisKeyPrefix  string       `yaml:"redis_key_prefix"`
	MetricsTextfile string       `yaml:"metrics_textfile"`
	Object          ObjectConfig `yaml:"object"`
}

type Config struct {
	LogLevel         string           `yaml:"log_level" validate:"oneof=debug info warn error"`
	Listen           string           `yaml:"listen"`
	Source           SourceConfig     `yaml:"source"`
	ClassifierConfig ClassifierConfig `yaml:"classifier"`
	IndexerConfig    IndexerConfig    `yaml:"indexer"`
	Output           OutputConfig     `yaml:"output"`
}

// Load reads the yaml file (if any), applies .env and environment overrides,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Source.GitHub.Token, envGitHubToken)
	setFromEnv(&c.Source.S3.AccessKey, envS3AccessKey)
	setFromEnv(&c.Source.S3.SecretKey, envS3SecretKey)
	setFromEnv(&c.Output.Object.AccessKey, envObjAccessKey)
	setFromEnv(&c.Output.Object.SecretKey, envObjSecretKey)
	setFromEnv(&c.Output.RedisURL, envRedisURL)
	setFromEnv(&c.LogLevel, envLogLevel)
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) SetDefaults() {
	setDefault(&c.LogLevel, LogLevelInfo)
	setDefault(&c.Listen, defaultListen)

	s := &c.Source
	setDefault(&s.Kind, SourceFS)
	if s.Timeout <= 0 {
		s.Timeout = defaultSourceTimeout
	}
	setDefault(&s.FS.Root, ".")
	setDefault(&s.GitHub.Branch, defaultGitHubBranch)
	setDefault(&s.GitHub.APIURL, defaultGitHubAPIURL)
	setDefault(&s.GitHub.RawURL, defaultGitHubRawURL)
	setDefault(&s.S3.Region, defaultS3Region)
	if s.Cache.Size <= 0 {
		s.Cache.Size = defaultCacheSize
	}
	if s.Cache.TTL <= 0 {
		s.Cache.TTL = defaultCacheTTL
	}
	if s.Retry.MaxAttempts <= 0 {
		s.Retry.MaxAttempts = defaultRetryAttempts
	}
	if s.Retry.InitialWait <= 0 {
		s.Retry.InitialWait = defaultRetryInitial
	}
	if s.Retry.MaxWait <= 0 {
		s.Retry.MaxWait = defaultRetryMaxWait
	}

	cc := &c.ClassifierConfig
	if cc.MaxDepth <= 0 {
		cc.MaxDepth = defaultMaxDepth
	}
	if len(cc.Extensions) == 0 {
		cc.Extensions = []string{".stl"}
	}
	if cc.ContentFolderAliases == nil {
		cc.ContentFolderAliases = []string{"STL", "stl"}
	}
	if cc.ExcludeNames == nil {
		cc.ExcludeNames = []string{"node_modules", "__pycache__"}
	}
	setDefault(&cc.DuplicatePolicy, DuplicateOverwrite)

	if c.IndexerConfig.Workers <= 0 {
		c.IndexerConfig.Workers = defaultWorkers
	}
	if c.IndexerConfig.Timeout <= 0 {
		c.IndexerConfig.Timeout = defaultIndexTimeout
	}

	setDefault(&c.Output.RedisKeyPrefix, defaultRedisKeyPrefix)
	setDefault(&c.Output.Object.Key, defaultObjectKey)
	setDefault(&c.Output.Object.Region, defaultS3Region)
}

func setDefault(dst *string, value string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = value
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Source.Kind {
	case SourceGitHubContents, SourceGitHubTree:
		if c.Source.GitHub.Owner == "" || c.Source.GitHub.Repo == "" {
			return fmt.Errorf("source.github.owner and source.github.repo are required for %s", c.Source.Kind)
		}
	case SourceS3:
		if c.Source.S3.Bucket == "" {
			return fmt.Errorf("source.s3.bucket is required for %s", c.Source.Kind)
		}
	}

	if o := c.Output.Object; o.Enabled && (o.Endpoint == "" || o.Bucket == "") {
		return fmt.Errorf("output.object.endpoint and output.object.bucket are required when enabled")
	}

	return nil
}

// DefaultOutputFile is used by the build command when neither the flag nor
// the config names a file.
func DefaultOutputFile() string {
	return defaultOutputFile
}
