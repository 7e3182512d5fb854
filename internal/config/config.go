package config

import (
	"errors"
	"fmt"
	"os"

	"costumier/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Google     GoogleConfig     `yaml:"google"`
	Uploads    UploadsConfig    `yaml:"uploads"`
	Booking    BookingConfig    `yaml:"booking"`
	Admins     []int64          `yaml:"admins"`
	Catalog    []models.Costume `yaml:"catalog"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	AdminChatID int64  `yaml:"admin_chat_id"`
	Debug       bool   `yaml:"debug"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type HTTPConfig struct {
	Port       int             `yaml:"port"`
	AdminToken string          `yaml:"admin_token"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
	BookingsSheetName     string `yaml:"bookings_sheet_name"`
}

type UploadsConfig struct {
	Path string `yaml:"path"`
}

type BookingConfig struct {
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
	MaxBookingDays         int `yaml:"max_booking_days"`
}

// Load reads the YAML config, expanding ${ENV} references after loading an
// optional .env file.
func Load(configPath string) (*Config, error) {
	// .env отсутствует в проде, это не ошибка
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expanded := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expanded, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.HTTP.AdminToken == "" {
		return errors.New("http admin token is required")
	}

	return ValidateCatalog(c.Catalog)
}

// ValidateCatalog checks the seed catalog for duplicate IDs and sizes with
// stock but no size label.
func ValidateCatalog(costumes []models.Costume) error {
	ids := make(map[int64]bool)
	for _, costume := range costumes {
		if costume.Title == "" {
			return fmt.Errorf("catalog costume with ID %d has no title", costume.ID)
		}
		if costume.ID != 0 {
			if ids[costume.ID] {
				return fmt.Errorf("duplicate costume ID found: %d", costume.ID)
			}
			ids[costume.ID] = true
		}
		for size := range costume.StockBySize {
			if !hasSize(costume.Sizes, size) {
				return fmt.Errorf("costume '%s' has stock for unlisted size %q", costume.Title, size)
			}
		}
	}
	return nil
}

func hasSize(sizes []string, size string) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Uploads.Path == "" {
		c.Uploads.Path = "uploads"
	}
	if c.Google.BookingsSheetName == "" {
		c.Google.BookingsSheetName = "Bookings"
	}
	if c.Booking.RateLimitWindowSeconds == 0 {
		c.Booking.RateLimitWindowSeconds = models.BookingRateLimitWindowSeconds
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = 365
	}
}
