package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Hotel      HotelConfig      `yaml:"hotel"`
	Booking    BookingConfig    `yaml:"booking"`
	Lock       LockConfig       `yaml:"lock"`
	GuestToken GuestTokenConfig `yaml:"guest_token"`
	Worker     WorkerConfig     `yaml:"worker"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory". The memory store keeps nothing across restarts.
	Driver      string `yaml:"driver"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Name        string `yaml:"name"`
	SSLMode     string `yaml:"ssl_mode"`
	ApplySchema bool   `yaml:"apply_schema"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	EventsTopic        string   `yaml:"events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type HotelConfig struct {
	Timezone     string `yaml:"timezone"`
	CheckInTime  string `yaml:"check_in_time"`
	CheckOutTime string `yaml:"check_out_time"`
}

// Location resolves the hotel timezone, defaulting to UTC.
func (h HotelConfig) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(h.Timezone)
}

func (h HotelConfig) CheckIn() (time.Duration, error) {
	return parseClock(h.CheckInTime, 14*time.Hour)
}

func (h HotelConfig) CheckOut() (time.Duration, error) {
	return parseClock(h.CheckOutTime, 11*time.Hour)
}

type BookingConfig struct {
	ReferenceCodeAttempts  int `yaml:"reference_code_attempts"`
	TxAttempts             int `yaml:"tx_attempts"`
	RoomTypesCacheTTL      int `yaml:"room_types_cache_ttl_seconds"`
	IssuanceGuardTTLSecond int `yaml:"issuance_guard_ttl_seconds"`
}

type LockConfig struct {
	// Driver is "ttlock" or "fake".
	Driver         string `yaml:"driver"`
	BaseURL        string `yaml:"base_url"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GuestTokenConfig struct {
	Secret        string `yaml:"secret"`
	PortalBaseURL string `yaml:"portal_base_url"`
}

type WorkerConfig struct {
	ExpirySweepSchedule string `yaml:"expiry_sweep_schedule"`
}

// LoadConfig reads the YAML file at path and applies environment overrides.
// A .env file next to the process is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	override := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Database.Password, "DATABASE_PASSWORD")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Lock.ClientID, "TTLOCK_CLIENT_ID")
	override(&c.Lock.ClientSecret, "TTLOCK_CLIENT_SECRET")
	override(&c.Lock.Username, "TTLOCK_USERNAME")
	override(&c.Lock.Password, "TTLOCK_PASSWORD")
	override(&c.Lock.BaseURL, "TTLOCK_BASE_URL")
	override(&c.GuestToken.Secret, "GUEST_TOKEN_SECRET")
	override(&c.GuestToken.PortalBaseURL, "APP_BASE_URL")
}

func parseClock(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
