package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of all environment variables read by the App.
const EnvPrefix = "CATALOG"

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string         `yaml:"git_commit" envconfig:"CATALOG_GIT_COMMIT"`
	GitTag             string         `yaml:"git_tag" envconfig:"CATALOG_GIT_TAG"`
	BuildTime          string         `yaml:"build_time" envconfig:"CATALOG_BUILD_TIME"`
	IsProduction       bool           `yaml:"is_production" envconfig:"CATALOG_IS_PRODUCTION"`
	LogLevel           zapcore.Level  `yaml:"log_level" envconfig:"CATALOG_LOG_LEVEL"`
	LogFolder          string         `yaml:"log_folder" envconfig:"CATALOG_LOG_FOLDER"`
	LogMaxSize         int            `yaml:"log_max_size" envconfig:"CATALOG_LOG_MAX_SIZE"`
	ProfilerEnable     bool           `yaml:"profiler_enable" envconfig:"CATALOG_PROFILER_ENABLE"`
	OpsEndpointsEnable bool           `yaml:"ops_endpoints_enable" envconfig:"CATALOG_OPS_ENDPOINTS_ENABLE"`
	Server             ServerConfig   `yaml:"server"`
	Storage            StorageConfig  `yaml:"storage"`
	BoltDB             BoltDBConfig   `yaml:"boltdb"`
	Redis              RedisConfig    `yaml:"redis"`
	Postgres           PostgresConfig `yaml:"postgres"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"CATALOG_SERVER_HOST"`
	Port                    string        `yaml:"port" envconfig:"CATALOG_SERVER_PORT"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"CATALOG_SERVER_READ_TIMEOUT"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"CATALOG_SERVER_WRITE_TIMEOUT"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"CATALOG_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"CATALOG_SERVER_LONG_REQUEST_WRITE_TIMEOUT"`
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"CATALOG_SERVER_SHUTDOWN_TIMEOUT"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"CATALOG_STORAGE_DRIVER"`
}

type BoltDBConfig struct {
	FilePath string        `yaml:"filepath" envconfig:"CATALOG_BOLTDB_FILE_PATH"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"CATALOG_BOLTDB_TIMEOUT"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"CATALOG_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"CATALOG_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"CATALOG_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"CATALOG_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"CATALOG_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"CATALOG_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"CATALOG_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"CATALOG_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"CATALOG_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"CATALOG_REDIS_DATABASE_INDEX"`
}

type PostgresConfig struct {
	DSN            string        `yaml:"dsn" envconfig:"CATALOG_POSTGRES_DSN"`
	MaxConns       int32         `yaml:"max_conns" envconfig:"CATALOG_POSTGRES_MAX_CONNS"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" envconfig:"CATALOG_POSTGRES_CONNECT_TIMEOUT"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters,
// configures build tags values and checks the storage settings.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	switch config.Storage.Driver {
	case "", BoltDriver:
		config.Storage.Driver = BoltDriver
		if len(config.BoltDB.FilePath) == 0 {
			return errors.New("make sure to set valid boltdb file path in configuration file")
		}
	case RedisDriver:
		if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
			return errors.New("make sure to set valid redis address and port in configuration file")
		}
	case PostgresDriver:
		if len(config.Postgres.DSN) == 0 {
			return errors.New("make sure to set valid postgres dsn in configuration file")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", config.Storage.Driver)
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(gitCommit, gitTag, buildTime string) (*Config, error) {
	config, err := LoadConfigFile("./config.yml")
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	err = godotenv.Load("./config.env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	err = LoadConfigEnvs(EnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}

// Redacted returns a copy of the configuration safe to be displayed.
func (c *Config) Redacted() Config {
	rc := *c
	if rc.Redis.Password != "" {
		rc.Redis.Password = "***"
	}
	if rc.Postgres.DSN != "" {
		rc.Postgres.DSN = redactDSN(rc.Postgres.DSN)
	}
	return rc
}

// redactedSecret replaces secrets, as url.URL.Redacted does.
const redactedSecret = "xxxxx"

// redactDSN masks the password of a postgres url or keyword/value connection
// string, wherever it is set.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		if q := u.Query(); q.Has("password") {
			q.Set("password", redactedSecret)
			u.RawQuery = q.Encode()
		}
		return u.Redacted()
	}
	return redactKeywordDSN(dsn)
}

// redactKeywordDSN walks the key=value pairs of a libpq connection string.
// Values may be single-quoted and contain backslash escapes.
func redactKeywordDSN(dsn string) string {
	var b strings.Builder
	s := dsn
	for {
		n := leadingSpaces(s)
		b.WriteString(s[:n])
		s = s[n:]
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			b.WriteString(s)
			return b.String()
		}
		key := strings.TrimSpace(s[:eq])
		b.WriteString(s[:eq+1])
		s = s[eq+1:]
		n = leadingSpaces(s)
		b.WriteString(s[:n])
		s = s[n:]

		end := keywordValueEnd(s)
		if key == "password" {
			b.WriteString(redactedSecret)
		} else {
			b.WriteString(s[:end])
		}
		s = s[end:]
	}
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && unicode.IsSpace(rune(s[n])) {
		n++
	}
	return n
}

func keywordValueEnd(s string) int {
	if strings.HasPrefix(s, "'") {
		for i := 1; i < len(s); i++ {
			switch s[i] {
			case '\\':
				i++
			case '\'':
				return i + 1
			}
		}
		return len(s)
	}
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
		case unicode.IsSpace(rune(s[i])):
			return i
		}
	}
	return len(s)
}
