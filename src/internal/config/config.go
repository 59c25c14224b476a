package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs     LogsSettings     `mapstructure:"logs"`
	App      Application      `mapstructure:"app"`
	Database Database         `mapstructure:"database"`
	Queue    QueueConfig      `mapstructure:"queue"`
	Redis    Redis            `mapstructure:"redis"`
	Security SecuritySettings `mapstructure:"security"`
	Server   ServerSettings   `mapstructure:"server"`
	Session  SessionConfig    `mapstructure:"session"`
	Gateway  GatewayConfig    `mapstructure:"gateway"`
	Cache    CacheConfig      `mapstructure:"cache"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name    string `mapstructure:"name"`
	Timeout int    `mapstructure:"timeout"`
	Version string `mapstructure:"version"`
}

type Database struct {
	Url                string `mapstructure:"url"`
	DbName             string `mapstructure:"dbname"`
	AccountCollection  string `mapstructure:"account-collection"`
	SessionCollection  string `mapstructure:"session-collection"`
	ActivityCollection string `mapstructure:"activity-collection"`
	Timeout            int    `mapstructure:"timeout"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url                string `mapstructure:"url"`
	Exchange           string `mapstructure:"exchange"`
	ExchangeType       string `mapstructure:"exchange-type"`
	ActivityRoutingKey string `mapstructure:"activity-routing-key"`
	NoticeRoutingKey   string `mapstructure:"notice-routing-key"`
	Durable            bool   `mapstructure:"durable"`
	AutoDelete         bool   `mapstructure:"auto-delete"`
	Internal           bool   `mapstructure:"internal"`
	NoWait             bool   `mapstructure:"no-wait"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type SecuritySettings struct {
	JwtKey        string `mapstructure:"jwt-key"`
	EncryptionKey string `mapstructure:"encryption-key"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

// SessionConfig carries the timeout policy and concurrency caps.
// All values are fixed at process start; a session captures its
// timeout-minutes at start time and keeps it for life.
type SessionConfig struct {
	DefaultTimeoutMinutes   int `mapstructure:"default-timeout-minutes"`
	WarningThresholdMinutes int `mapstructure:"warning-threshold-minutes"`
	ExtensionMinutes        int `mapstructure:"extension-minutes"`
	MaxExtensions           int `mapstructure:"max-extensions"`
	MaxAccountsPerUser      int `mapstructure:"max-accounts-per-user"`
	MaxConcurrentPerUser    int `mapstructure:"max-concurrent-per-user"`
	MaxConcurrentGlobal     int `mapstructure:"max-concurrent-global"`
	SweepIntervalSeconds    int `mapstructure:"sweep-interval-seconds"`
	ConnectTimeoutSeconds   int `mapstructure:"connect-timeout-seconds"`
	TeardownTimeoutSeconds  int `mapstructure:"teardown-timeout-seconds"`
	ShutdownTimeoutSeconds  int `mapstructure:"shutdown-timeout-seconds"`
}

type GatewayConfig struct {
	Url     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"`
	// HealthIntervalSeconds drives the adapter's liveness probe cadence.
	HealthIntervalSeconds int `mapstructure:"health-interval-seconds"`
}

type CacheConfig struct {
	SnapshotExpirationMinutes int    `mapstructure:"snapshot-expiration-minutes"`
	OverviewStatKey           string `mapstructure:"overview-stat-key"`
	OverviewExpirationMinutes int    `mapstructure:"overview-expiration-minutes"`
}

func Load() *Configuration {
	cfg := read()
	applyDefaults(cfg)
	logrus.Info("Configuration loaded")

	// Override with environment variables
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	jwtKey := os.Getenv("JWT_KEY")
	if jwtKey != "" {
		cfg.Security.JwtKey = jwtKey
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey != "" {
		cfg.Security.EncryptionKey = encryptionKey
	}

	gatewayUrl := os.Getenv("SESSION_GATEWAY_URL")
	if gatewayUrl != "" {
		cfg.Gateway.Url = gatewayUrl
	}

	return cfg
}

func applyDefaults(cfg *Configuration) {
	if cfg.Session.DefaultTimeoutMinutes <= 0 {
		cfg.Session.DefaultTimeoutMinutes = 30
	}
	if cfg.Session.WarningThresholdMinutes <= 0 {
		cfg.Session.WarningThresholdMinutes = 5
	}
	if cfg.Session.ExtensionMinutes <= 0 {
		cfg.Session.ExtensionMinutes = 15
	}
	if cfg.Session.MaxExtensions <= 0 {
		cfg.Session.MaxExtensions = 2
	}
	if cfg.Session.MaxAccountsPerUser <= 0 {
		cfg.Session.MaxAccountsPerUser = 5
	}
	if cfg.Session.MaxConcurrentPerUser <= 0 {
		cfg.Session.MaxConcurrentPerUser = 3
	}
	if cfg.Session.MaxConcurrentGlobal <= 0 {
		cfg.Session.MaxConcurrentGlobal = 50
	}
	if cfg.Session.SweepIntervalSeconds <= 0 {
		cfg.Session.SweepIntervalSeconds = 60
	}
	if cfg.Session.ConnectTimeoutSeconds <= 0 {
		cfg.Session.ConnectTimeoutSeconds = 30
	}
	if cfg.Session.TeardownTimeoutSeconds <= 0 {
		cfg.Session.TeardownTimeoutSeconds = 10
	}
	if cfg.Session.ShutdownTimeoutSeconds <= 0 {
		cfg.Session.ShutdownTimeoutSeconds = 30
	}
	if cfg.Gateway.HealthIntervalSeconds <= 0 {
		cfg.Gateway.HealthIntervalSeconds = 30
	}
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	var config Configuration

	err := viper.ReadInConfig()
	if err != nil {
		logrus.Panicf("Error reading config file, %s", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Panicf("Error unmarshalling config file, %s", err)
	}

	return &config
}
