package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Delivery     DeliveryConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TTK_APP_ENV" required:"true"`
	Port         string `envconfig:"TTK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TTK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TTK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TTK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TTK_DB_DSN"`
	Driver string `envconfig:"TTK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TTK_DB_HOST"`
	LegacyPort     int    `envconfig:"TTK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TTK_DB_USER"`
	LegacyPassword string `envconfig:"TTK_DB_PASSWORD"`
	LegacyName     string `envconfig:"TTK_DB_NAME"`
	LegacySSLMode  string `envconfig:"TTK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TTK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TTK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TTK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TTK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TTK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TTK_REDIS_ADDR"`
	Password     string        `envconfig:"TTK_REDIS_PASSWORD"`
	DB           int           `envconfig:"TTK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TTK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TTK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TTK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TTK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TTK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TTK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TTK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TTK_JWT_EXPIRATION_MINUTES" required:"true"`
}

// TokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TTK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"TTK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TTK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"TTK_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"TTK_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	CatalogTopic             string `envconfig:"TTK_PUBSUB_CATALOG_TOPIC" required:"true"`
	CatalogSubscription      string `envconfig:"TTK_PUBSUB_CATALOG_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"TTK_PUBSUB_NOTIFICATION_TOPIC" default:"ttk-notification-events"`
	NotificationSubscription string `envconfig:"TTK_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TTK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TTK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TTK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	FireSaleSweepInterval  time.Duration `envconfig:"TTK_CRON_FIRE_SALE_SWEEP_INTERVAL" default:"1m"`
	MuteCleanupInterval    time.Duration `envconfig:"TTK_CRON_MUTE_CLEANUP_INTERVAL" default:"5m"`
	StaleCartSweepInterval time.Duration `envconfig:"TTK_CRON_STALE_CART_SWEEP_INTERVAL" default:"1h"`
	StaleCartTTL           time.Duration `envconfig:"TTK_CRON_STALE_CART_TTL" default:"720h"`
	LockTTL                time.Duration `envconfig:"TTK_CRON_LOCK_TTL" default:"2m"`
}

type DeliveryConfig struct {
	MaxSavedAddresses  int           `envconfig:"TTK_DELIVERY_MAX_SAVED_ADDRESSES" default:"2"`
	DriverLocationTTL  time.Duration `envconfig:"TTK_DELIVERY_DRIVER_LOCATION_TTL" default:"10m"`
	DriverPingInterval time.Duration `envconfig:"TTK_DELIVERY_DRIVER_PING_INTERVAL" default:"15s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate     bool `envconfig:"TTK_AUTO_MIGRATE" default:"false"`
	RegionBroadcast bool `envconfig:"TTK_FEATURE_REGION_BROADCAST" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
