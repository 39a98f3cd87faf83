package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Crypto        CryptoConfig
	CORS          CORSConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Crypto.validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.SigningSecret() == "" {
		return nil, fmt.Errorf("either %s or %s is required", EnvJWTSecret, EnvLegacyJWTSecret)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PDV_APP_ENV" required:"true"`
	Port         string `envconfig:"PDV_APP_PORT"`
	LegacyPort   string `envconfig:"PORT" default:"3000"`
	LogLevel     string `envconfig:"PDV_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PDV_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PDV_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

// ListenPort prefers PDV_APP_PORT and falls back to PORT.
func (a AppConfig) ListenPort() string {
	if p := strings.TrimSpace(a.Port); p != "" {
		return p
	}
	return a.LegacyPort
}

type DBConfig struct {
	DSN       string `envconfig:"PDV_DB_DSN"`
	LegacyURL string `envconfig:"DATABASE_URL"`
	Driver    string `envconfig:"PDV_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PDV_DB_HOST"`
	Port     int    `envconfig:"PDV_DB_PORT" default:"5432"`
	User     string `envconfig:"PDV_DB_USER"`
	Password string `envconfig:"PDV_DB_PASSWORD"`
	Name     string `envconfig:"PDV_DB_NAME"`
	SSLMode  string `envconfig:"PDV_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PDV_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PDV_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PDV_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PDV_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PDV_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the configured driver targets SQLite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PDV_REDIS_URL"`
	Address      string        `envconfig:"PDV_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"PDV_REDIS_PASSWORD"`
	DB           int           `envconfig:"PDV_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PDV_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PDV_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PDV_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PDV_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"PDV_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PDV_JWT_SECRET"`
	LegacySecret      string `envconfig:"JWT_SECRET"`
	Issuer            string `envconfig:"PDV_JWT_ISSUER" default:"pdv-backend"`
	ExpirationMinutes int    `envconfig:"PDV_JWT_EXPIRATION_MINUTES" default:"60"`
	CookieName        string `envconfig:"PDV_JWT_COOKIE_NAME" default:"token"`
}

// SigningSecret returns PDV_JWT_SECRET, or JWT_SECRET when the former is unset.
func (j JWTConfig) SigningSecret() string {
	if j.Secret != "" {
		return j.Secret
	}
	return j.LegacySecret
}

// TTL is the lifetime shared by the token, its session and the auth cookie.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	BcryptCost int `envconfig:"PDV_BCRYPT_COST" default:"12"`
}

type CryptoConfig struct {
	AESKey       string `envconfig:"PDV_AES_KEY"`
	AESIV        string `envconfig:"PDV_AES_IV"`
	LegacyAESKey string `envconfig:"AES_KEY"`
	LegacyAESIV  string `envconfig:"AES_IV"`
}

// Key returns the decoded AES key.
func (c CryptoConfig) Key() ([]byte, error) {
	return decodeHex(firstNonEmpty(c.AESKey, c.LegacyAESKey), EnvAESKey)
}

// IV returns the decoded AES initialization vector.
func (c CryptoConfig) IV() ([]byte, error) {
	return decodeHex(firstNonEmpty(c.AESIV, c.LegacyAESIV), EnvAESIV)
}

func (c CryptoConfig) validate() error {
	key, err := c.Key()
	if err != nil {
		return err
	}
	iv, err := c.IV()
	if err != nil {
		return err
	}
	if len(key) != 16 || len(iv) != 16 {
		return fmt.Errorf("%s and %s must be 32 hex characters", EnvAESKey, EnvAESIV)
	}
	return nil
}

type CORSConfig struct {
	FrontendHost string `envconfig:"FRONTEND_HOST" default:"http://localhost"`
	FrontendPort string `envconfig:"FRONTEND_PORT" default:"5173"`
}

// Origin is the single browser origin allowed to call the API.
func (c CORSConfig) Origin() string {
	host := strings.TrimRight(strings.TrimSpace(c.FrontendHost), "/")
	if c.FrontendPort == "" {
		return host
	}
	return host + ":" + c.FrontendPort
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PDV_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"PDV_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"PDV_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PDV_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PDV_AUTO_MIGRATE" default:"false"`
	SeedOnBoot  bool `envconfig:"PDV_SEED_ON_BOOT" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PDV_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PDV_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SalesTopic string `envconfig:"PDV_PUBSUB_SALES_TOPIC" default:"pdv-sales-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PDV_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PDV_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PDV_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if db.LegacyURL != "" {
		db.DSN = db.LegacyURL
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range splitDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s, %s or %s are required", EnvDBDSN, EnvDatabaseURL, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

func decodeHex(value, name string) ([]byte, error) {
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	out, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("%s must be hex encoded: %w", name, err)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
