package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
)

// Config ...
type Config struct {
	DB string `yaml:"db_dsn"`

	Deriv struct {
		AppID string `yaml:"app_id"`
		Token string `yaml:"token"`
		WSURL string `yaml:"ws_url"`
	} `yaml:"deriv"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Торговля
	Symbol          string  `yaml:"symbol"`
	Mode            string  `yaml:"mode"` // paper | live
	BaseStake       float64 `yaml:"base_stake"`
	StakeIncrement  float64 `yaml:"stake_increment"`
	ProfitMilestone float64 `yaml:"profit_milestone"`
	Multipliers     []int   `yaml:"multipliers"`
	BreathingK      float64 `yaml:"breathing_k"`
	DojiThreshold   float64 `yaml:"doji_threshold"`
	SLBufferPct     float64 `yaml:"sl_buffer_pct"`
	SLAmountUSD     float64 `yaml:"sl_amount_usd"`
	TPAmountUSD     float64 `yaml:"tp_amount_usd"`

	// Расписания. Длительности задаются только через env
	// (BACKFILL_INTERVAL=20m и т.д.), yaml их не несёт.
	LookbackMinutes  int           `yaml:"lookback_minutes"`
	BackfillInterval time.Duration `yaml:"-"`
	DetectorInterval time.Duration `yaml:"-"`
	ExecutorInterval time.Duration `yaml:"-"`
	SettleDelay      time.Duration `yaml:"-"` // пауза после 30m-границы
	ReconnectDelay   time.Duration `yaml:"-"`
}

func durationFromEnv(v *viper.Viper, key string, def time.Duration) time.Duration {
	val := v.GetString(key)
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("bad %s=%q, using default %s", key, val, def)
		return def
	}
	return d
}

func NewConfig() (*Config, error) {

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
		Symbol:          "R_50",
		Mode:            "paper",
		BaseStake:       15.0,
		StakeIncrement:  2.5,
		ProfitMilestone: 500.0,
		Multipliers:     []int{200, 400, 600, 800},
		BreathingK:      1.7,
		DojiThreshold:   0.85,
		SLBufferPct:     0.01,
		SLAmountUSD:     10.0,
		TPAmountUSD:     15.0,

		LookbackMinutes:  60,
		BackfillInterval: 20 * time.Minute,
		DetectorInterval: 5 * time.Minute,
		ExecutorInterval: 10 * time.Second,
		SettleDelay:      10 * time.Second,
		ReconnectDelay:   5 * time.Second,
	}
	err = decoder.Decode(&config)
	if err != nil {
		log.Fatalf("Failed to decode config file: %v", err)
	}

	// env-оверрайды поверх файла
	v := viper.New()
	v.AutomaticEnv()

	if s := v.GetString("DATABASE_DSN"); s != "" {
		config.DB = s
	}
	if s := v.GetString("DERIV_API_TOKEN"); s != "" {
		config.Deriv.Token = s
	}
	if s := v.GetString("DERIV_APP_ID"); s != "" {
		config.Deriv.AppID = s
	}
	if s := v.GetString("TELEGRAM_TOKEN"); s != "" {
		config.Telegram.Token = s
	}
	if s := v.GetString("SYMBOL"); s != "" {
		config.Symbol = s
	}
	if s := v.GetString("MODE"); s != "" {
		config.Mode = s
	}
	if v.IsSet("BASE_STAKE") {
		config.BaseStake = v.GetFloat64("BASE_STAKE")
	}
	if v.IsSet("LOOKBACK_MINUTES") {
		config.LookbackMinutes = v.GetInt("LOOKBACK_MINUTES")
	}
	if v.IsSet("CHECK_INTERVAL") {
		config.BackfillInterval = time.Duration(v.GetInt("CHECK_INTERVAL")) * time.Second
	}
	config.BackfillInterval = durationFromEnv(v, "BACKFILL_INTERVAL", config.BackfillInterval)
	config.DetectorInterval = durationFromEnv(v, "DETECTOR_INTERVAL", config.DetectorInterval)
	config.ExecutorInterval = durationFromEnv(v, "EXECUTOR_INTERVAL", config.ExecutorInterval)
	config.SettleDelay = durationFromEnv(v, "SETTLE_DELAY", config.SettleDelay)
	config.ReconnectDelay = durationFromEnv(v, "RECONNECT_DELAY", config.ReconnectDelay)

	if config.Deriv.AppID == "" {
		config.Deriv.AppID = "1089"
	}
	if config.Deriv.WSURL == "" {
		config.Deriv.WSURL = fmt.Sprintf("wss://ws.derivws.com/websockets/v3?app_id=%s", config.Deriv.AppID)
	}

	return &config, nil
}
