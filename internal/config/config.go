package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/rfid.db"

	// Serial reader
	SerialAddress      string
	SerialBaudRate     int
	SerialPollInterval time.Duration

	// Video sources
	SourceMaxRetries  int
	SourceFrameRate   int
	SourceOpenBackoff time.Duration
	SourceReadBackoff time.Duration

	// WebRTC
	ReadyTimeout time.Duration
	ICEServers   []string
	VideoBitRate int

	// Access log
	RecentLogLimit   int
	LogRetentionDays int
	PruneIntervalHrs int
}

func FromEnv() Config {
	// Optional .env for dev setups; missing file is fine.
	_ = godotenv.Load()

	addr := getenvDefault("RFID_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("RFID_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("RFID_DB_PATH", "./data/rfid.db")

	iceServers := splitCSV(getenvDefault("RFID_ICE_SERVERS", "stun:stun.l.google.com:19302"))

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		SerialAddress:      getenvDefault("RFID_SERIAL_ADDRESS", "COM3"),
		SerialBaudRate:     getenvInt("RFID_SERIAL_BAUD_RATE", 9600),
		SerialPollInterval: getenvDuration("RFID_SERIAL_POLL_INTERVAL", 100*time.Millisecond),

		SourceMaxRetries:  getenvInt("RFID_SOURCE_MAX_RETRIES", 5),
		SourceFrameRate:   getenvInt("RFID_SOURCE_FRAME_RATE", 30),
		SourceOpenBackoff: getenvDuration("RFID_SOURCE_OPEN_BACKOFF", 2*time.Second),
		SourceReadBackoff: getenvDuration("RFID_SOURCE_READ_BACKOFF", time.Second),

		ReadyTimeout: getenvDuration("RFID_SOURCE_READY_TIMEOUT", 10*time.Second),
		ICEServers:   iceServers,
		VideoBitRate: getenvInt("RFID_VIDEO_BITRATE", 1_000_000),

		RecentLogLimit:   getenvInt("RFID_RECENT_LOG_LIMIT", 50),
		LogRetentionDays: getenvInt("RFID_LOG_RETENTION_DAYS", 0),
		PruneIntervalHrs: getenvInt("RFID_PRUNE_INTERVAL_HOURS", 6),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitCSV(v string) []string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
