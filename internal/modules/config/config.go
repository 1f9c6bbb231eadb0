package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	tokenMetaAPIENV   = "META_API_KEY"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`

	MetaAPI struct {
		Token     string `yaml:"token"`
		BaseURL   string `yaml:"base_url"`
		StreamURL string `yaml:"stream_url"`
	} `yaml:"metaapi"`

	DB      string `yaml:"db_dsn"`
	Service struct {
		Host      string `yaml:"host"`
		AdminPort int    `yaml:"admin_port"`
	} `yaml:"service"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Дефолтные настройки копирования — выдаются новому подписчику,
	// дальше он правит их через бота.
	DefaultLotMultiplier  float64
	DefaultBaseLotSize    float64
	DefaultNumberOfOrders int
	DefaultMaxRiskPct     float64

	DefaultCopyStopLoss    bool
	DefaultCopyTakeProfit  bool
	DefaultReverseSignals  bool
	DefaultAutoCloseAtTP1  bool
	DefaultMoveToBreakeven bool
	// Процент пути до TP1, на котором стоп переносится в безубыток.
	DefaultBreakEvenTriggerPct float64

	// Пауза между ордерами на одном счёте (rate limit у MetaApi).
	OrderDelay time.Duration

	// Мониторинг позиции: период опроса и абсолютный таймаут задачи.
	MonitorPollInterval time.Duration
	MonitorTimeout      time.Duration

	// Гигиена реестра сигналов и профилей.
	PendingRetention time.Duration
	CleanupInterval  time.Duration
	MaxSubscribers   int
	SubscriberTTL    time.Duration
}

func NewConfig() (*Config, error) {
	// локальный .env перекрывает values_local.yaml, в проде его нет
	_ = godotenv.Load()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		DefaultLotMultiplier:  floatFromEnv("DEFAULT_LOT_MULTIPLIER", 1),
		DefaultBaseLotSize:    floatFromEnv("DEFAULT_LOT_SIZE", 0.01),
		DefaultNumberOfOrders: intFromEnv("DEFAULT_ORDERS_COUNT", 1),
		DefaultMaxRiskPct:     floatFromEnv("DEFAULT_MAX_RISK", 5),

		DefaultCopyStopLoss:    boolFromEnv("DEFAULT_COPY_SL", true),
		DefaultCopyTakeProfit:  boolFromEnv("DEFAULT_COPY_TP", true),
		DefaultReverseSignals:  boolFromEnv("DEFAULT_REVERSE_SIGNALS", false),
		DefaultAutoCloseAtTP1:  boolFromEnv("DEFAULT_AUTO_CLOSE_TP1", true),
		DefaultMoveToBreakeven: boolFromEnv("DEFAULT_MOVE_BREAKEVEN", true),

		DefaultBreakEvenTriggerPct: floatFromEnv("DEFAULT_BREAKEVEN_TRIGGER", 50),

		OrderDelay:          durationFromEnv("ORDER_DELAY", "500ms"),
		MonitorPollInterval: durationFromEnv("MONITOR_POLL_INTERVAL", "5s"),
		MonitorTimeout:      durationFromEnv("MONITOR_TIMEOUT", "24h"),

		PendingRetention: durationFromEnv("PENDING_RETENTION", "168h"),
		CleanupInterval:  time.Duration(intFromEnv("CLEANUP_INTERVAL_HOURS", 24)) * time.Hour,
		MaxSubscribers:   intFromEnv("MAX_USERS", 1000),
		SubscriberTTL:    time.Duration(intFromEnv("USER_TTL_DAYS", 30)) * 24 * time.Hour,
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if token := os.Getenv(tokenMetaAPIENV); token != "" {
		config.MetaAPI.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}

	if config.MetaAPI.BaseURL == "" {
		config.MetaAPI.BaseURL = "https://mt-client-api-v1.metaapi.cloud"
	}
	if config.MetaAPI.StreamURL == "" {
		config.MetaAPI.StreamURL = "wss://mt-client-api-v1.metaapi.cloud/ws"
	}

	return &config, nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
