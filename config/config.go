package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del tracker.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TrackerConfig controla el par operado, el fee y los jobs programados.
type TrackerConfig struct {
	Asset         string  `yaml:"asset"`    // leg crypto (único par en este sistema)
	Fiat          string  `yaml:"fiat"`     // leg fiat
	FeeRate       float64 `yaml:"fee_rate"` // fee de compra: quantity * fee_rate, en crypto
	SyncStartDate string  `yaml:"sync_start_date"` // inicio del histórico a sincronizar, YYYY-MM-DD
	SyncSchedule  string  `yaml:"sync_schedule"`   // spec de cron para el autosync
	DailySchedule string  `yaml:"daily_schedule"`  // spec de cron para el reporte diario; vacío = desactivado
}

// APIConfig contiene el endpoint y credenciales de la fuente de trades.
// Key y Secret vienen solo de variables de entorno, nunca del YAML.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	RecvWindowMs int    `yaml:"recv_window_ms"`
	PageSize     int    `yaml:"page_size"` // ≤ 30, tope de la API
	Key          string `yaml:"-"`
	Secret       string `yaml:"-"`
}

// StorageConfig controla dónde se persiste el ledger.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SyncBeginMs devuelve el inicio del histórico a sincronizar en epoch ms.
func (c *Config) SyncBeginMs() (int64, error) {
	day, err := time.ParseInLocation("2006-01-02", c.Tracker.SyncStartDate, time.Local)
	if err != nil {
		return 0, fmt.Errorf("config.SyncBeginMs: parse %q: %w", c.Tracker.SyncStartDate, err)
	}
	return day.UnixMilli(), nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	cfg.API.Key = os.Getenv("BYBIT_API_KEY")
	cfg.API.Secret = os.Getenv("BYBIT_API_SECRET")

	if v := os.Getenv("DEFAULT_FIAT"); v != "" {
		cfg.Tracker.Fiat = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Tracker.Asset == "" {
		cfg.Tracker.Asset = "USDT"
	}
	if cfg.Tracker.Fiat == "" {
		cfg.Tracker.Fiat = "NGN"
	}
	if cfg.Tracker.FeeRate <= 0 {
		cfg.Tracker.FeeRate = 0.00275
	}
	if cfg.Tracker.SyncStartDate == "" {
		cfg.Tracker.SyncStartDate = fmt.Sprintf("%d-01-01", time.Now().Year())
	}
	if cfg.Tracker.SyncSchedule == "" {
		cfg.Tracker.SyncSchedule = "@every 10m"
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.bybit.com"
	}
	if cfg.API.RecvWindowMs <= 0 {
		cfg.API.RecvWindowMs = 5000
	}
	if cfg.API.PageSize <= 0 || cfg.API.PageSize > 30 {
		cfg.API.PageSize = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "p2ptracker.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
