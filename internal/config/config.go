package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あればPOSTGRES_*より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret string // JWT署名シークレット

	GoEnv        string // dev/prod
	FEURL        string // フロントURL（CORSで使う）
	CookieSecure bool   // cart_session cookieのSecure属性

	ChatURL      string // ローカルのチャットAPI（空なら使わない）
	GeminiAPIKey string
	GeminiModel  string

	RabbitMQURL string // 空ならチェックアウト通知はしない

	LocalStorePath string // CLIのカート保存先（sqlite）

	CartMaxSessions int           // メモリに置くカートの上限
	CartIdleTimeout time.Duration // 使われないカートをメモリから外すまで（保存データは残る）
}

const (
	defaultPort           = "8080"
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultLocalStorePath = "pc_builder_cart.db"

	defaultCartMaxSessions = 10000
	defaultCartIdleTimeout = 30 * time.Minute
)

// .envを読む。無ければ何もしない
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiDefault("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxCarts, err := atoiDefault("CART_MAX_SESSIONS", defaultCartMaxSessions)
	if err != nil {
		return Config{}, err
	}
	cartIdle, err := durationDefault("CART_IDLE_TIMEOUT", defaultCartIdleTimeout)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", defaultPort),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "pcbuilder"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:        getenv("GO_ENV", "dev"),
		FEURL:        getenv("FE_URL", "http://localhost:5173"),
		CookieSecure: envBool("COOKIE_SECURE", false),

		ChatURL:      os.Getenv("CHAT_URL"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getenv("GEMINI_MODEL", defaultGeminiModel),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		LocalStorePath: LocalStorePath(),

		CartMaxSessions: maxCarts,
		CartIdleTimeout: cartIdle,
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.GoEnv {
	case "dev", "test", "prod":
	default:
		return Config{}, fmt.Errorf("GO_ENV must be dev, test or prod: %q", cfg.GoEnv)
	}
	if cfg.CartMaxSessions <= 0 || cfg.CartIdleTimeout <= 0 {
		return Config{}, fmt.Errorf("CART_MAX_SESSIONS and CART_IDLE_TIMEOUT must be positive")
	}
	if cfg.GoEnv == "prod" && len(cfg.JWTSecret) < 32 {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least 32 bytes in prod")
	}

	return cfg, nil
}

// LocalStorePath はCLIのカート保存先。JWT_SECRETなどが無くても読める
func LocalStorePath() string {
	return getenv("LOCAL_STORE_PATH", defaultLocalStorePath)
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// Addrは":8080"形式
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

// DSNはgorm(postgres)に渡す接続文字列
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

// 30m, 1h などtime.ParseDurationの形式
func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True":
		return true
	case "0", "false", "FALSE", "False":
		return false
	default:
		return def
	}
}
