package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はコンソールコア全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	BaseURL        string        // バックエンドAPIのベースURL（必須）
	RequestTimeout time.Duration // 1リクエストあたりのタイムアウト上限
	PerPage        int           // 一覧取得の1ページあたり件数

	// Rate Limit（アウトバウンド）
	RateLimitPerMinute int // 1分あたりの最大リクエスト数
	RateLimitBurst     int // バーストサイズ

	// Session
	SessionFile string // セッション永続化ファイルのパス。空の場合は永続化しない

	// Download
	DownloadTimeout time.Duration // 画像ダウンロードのタイムアウト
	DownloadMaxSize int64         // 画像ダウンロードの最大サイズ（バイト）

	// 開発用スタブバックエンド
	StubPort string // stubモードのリッスンポート
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.BaseURL = strings.TrimRight(os.Getenv("CONSOLE_BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "CONSOLE_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.RequestTimeout = getEnvDuration("CONSOLE_REQUEST_TIMEOUT", 15*time.Second)
	cfg.PerPage = getEnvInt("CONSOLE_PER_PAGE", 10)
	cfg.RateLimitPerMinute = getEnvInt("CONSOLE_RATE_LIMIT", 120)
	cfg.RateLimitBurst = getEnvInt("CONSOLE_RATE_BURST", 20)
	cfg.SessionFile = getEnvString("CONSOLE_SESSION_FILE", "")
	cfg.DownloadTimeout = getEnvDuration("CONSOLE_DOWNLOAD_TIMEOUT", 30*time.Second)
	cfg.DownloadMaxSize = getEnvInt64("CONSOLE_DOWNLOAD_MAX_SIZE", 10485760)
	cfg.StubPort = getEnvString("CONSOLE_STUB_PORT", "8080")

	if cfg.PerPage < 1 {
		return nil, fmt.Errorf("CONSOLE_PER_PAGE must be positive: %d", cfg.PerPage)
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
