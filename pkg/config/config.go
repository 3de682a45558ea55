package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Labor         LaborConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Labor.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEMCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"GEMCORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GEMCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEMCORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GEMCORE_DB_DSN"`
	Driver string `envconfig:"GEMCORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GEMCORE_DB_HOST"`
	LegacyPort     int    `envconfig:"GEMCORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GEMCORE_DB_USER"`
	LegacyPassword string `envconfig:"GEMCORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GEMCORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GEMCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GEMCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEMCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEMCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEMCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GEMCORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GEMCORE_REDIS_ADDR"`
	Password     string        `envconfig:"GEMCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEMCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEMCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEMCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEMCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEMCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEMCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GEMCORE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GEMCORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GEMCORE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GEMCORE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GEMCORE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GEMCORE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GEMCORE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GEMCORE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GEMCORE_ARGON_KEY_LEN" default:"32"`
}

// LaborConfig drives the per-order labor charge: a flat bench fee, a per-stone
// rate for side stones, and a setup fee added when the order has a center stone.
type LaborConfig struct {
	BasePrice      string `envconfig:"GEMCORE_LABOR_BASE_PRICE" default:"35"`
	PerSideStone   string `envconfig:"GEMCORE_LABOR_PER_SIDE_STONE" default:"1"`
	CenterSetupFee string `envconfig:"GEMCORE_LABOR_CENTER_SETUP_FEE" default:"5"`
}

func (l LaborConfig) validate() error {
	for name, raw := range map[string]string{
		"GEMCORE_LABOR_BASE_PRICE":       l.BasePrice,
		"GEMCORE_LABOR_PER_SIDE_STONE":   l.PerSideStone,
		"GEMCORE_LABOR_CENTER_SETUP_FEE": l.CenterSetupFee,
	} {
		if _, err := decimal.NewFromString(raw); err != nil {
			return fmt.Errorf("%s must be a decimal amount: %w", name, err)
		}
	}
	return nil
}

// Base returns the flat bench fee as a decimal.
func (l LaborConfig) Base() decimal.Decimal {
	return mustDecimal(l.BasePrice)
}

// SideStoneRate returns the per-side-stone rate as a decimal.
func (l LaborConfig) SideStoneRate() decimal.Decimal {
	return mustDecimal(l.PerSideStone)
}

// CenterFee returns the center stone setup fee as a decimal.
func (l LaborConfig) CenterFee() decimal.Decimal {
	return mustDecimal(l.CenterSetupFee)
}

func mustDecimal(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// AuthRateLimitConfig throttles the login surface per client IP and per
// submitted email.
type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GEMCORE_AUTH_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit    int           `envconfig:"GEMCORE_AUTH_LOGIN_IP_LIMIT" default:"30"`
	LoginEmailLimit int           `envconfig:"GEMCORE_AUTH_LOGIN_EMAIL_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GEMCORE_AUTO_MIGRATE" default:"false"`
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
