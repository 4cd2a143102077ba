package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres          Postgres
	Telegram          Telegram
	Redis             Redis
	API               API
	Prices            Prices
	Jobs              Jobs
	GoogleDrive       GoogleDrive
	Ledger            Ledger
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"168h"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"data/migrations"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"1048576"`
	// AllowedChatIDs restricts the bot to these chats. Empty allows everyone.
	AllowedChatIDs []int64 `env:"TELEGRAM_ALLOWED_CHAT_IDS" envSeparator:"," envDefault:""`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug   bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	MoexApi MoexApi
}

type MoexApi struct {
	Url   string `env:"MOEX_API_URL" envDefault:"https://iss.moex.com"`
	Board string `env:"MOEX_BOARD" envDefault:"TQBR"`
}

type Prices struct {
	Key             string        `env:"PRICES_REDIS_KEY" envDefault:"ledger:prices"`
	QuoteExpiration time.Duration `env:"PRICES_QUOTE_EXPIRATION" envDefault:"15m"`
}

type Jobs struct {
	// RefreshPricesInterval of 0 keeps automatic price fetching off.
	RefreshPricesInterval time.Duration `env:"REFRESH_PRICES_JOB_INTERVAL" envDefault:"0s"`
	CleanupExportsCrontab string        `env:"CLEANUP_EXPORTS_JOB_CRONTAB" envDefault:"0 3 * * *"`
}

type GoogleDrive struct {
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"72h"`
}

type Ledger struct {
	Currency        string `env:"LEDGER_CURRENCY" envDefault:"INR"`
	HoldingsPerPage int    `env:"HOLDINGS_PER_PAGE" envDefault:"10"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	return cfg, nil
}
