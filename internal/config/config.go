package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"app"`

	HTTP struct {
		Addr       string
		AdminToken string `mapstructure:"admin_token"`
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Redis struct {
		Enabled  bool
		Addr     string
		Password string
	} `mapstructure:"redis"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Telegram struct {
		Enabled     bool
		Token       string
		AdminChatID int64 `mapstructure:"admin_chat_id"`
	} `mapstructure:"telegram"`

	Providers struct {
		Timeout time.Duration

		CryptoInvoice struct {
			BaseURL   string `mapstructure:"base_url"`
			APIKey    string `mapstructure:"api_key"`
			IPNSecret string `mapstructure:"ipn_secret"`
		} `mapstructure:"cryptoinvoice"`

		PayPal struct {
			BaseURL  string `mapstructure:"base_url"`
			ClientID string `mapstructure:"client_id"`
			Secret   string
		} `mapstructure:"paypal"`

		Razorpay struct {
			BaseURL       string `mapstructure:"base_url"`
			KeyID         string `mapstructure:"key_id"`
			KeySecret     string `mapstructure:"key_secret"`
			WebhookSecret string `mapstructure:"webhook_secret"`
		} `mapstructure:"razorpay"`
	} `mapstructure:"providers"`

	// Durations maps a duration key ("1m", "1y") to its day count and default
	// credit cost. Per-service overrides live in service_duration_credits.
	Durations map[string]Duration `mapstructure:"durations"`

	// Bundles maps a wallet top-up tier to its USD price and granted credits.
	Bundles map[string]Bundle `mapstructure:"bundles"`

	Referral struct {
		Credits int
	} `mapstructure:"referral"`
}

type Duration struct {
	Days    int
	Credits int
}

type Bundle struct {
	USD     float64
	Credits int
}

func Load(path string) (Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()

	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("providers.timeout", 20*time.Second)
	v.SetDefault("providers.cryptoinvoice.base_url", "https://api.nowpayments.io/v1")
	v.SetDefault("providers.paypal.base_url", "https://api-m.paypal.com")
	v.SetDefault("providers.razorpay.base_url", "https://api.razorpay.com/v1")
	v.SetDefault("referral.credits", 1)

	v.SetDefault("durations", map[string]map[string]int{
		"1w": {"days": 7, "credits": 2},
		"1m": {"days": 30, "credits": 5},
		"3m": {"days": 90, "credits": 12},
		"6m": {"days": 180, "credits": 22},
		"1y": {"days": 365, "credits": 40},
	})

	v.SetDefault("bundles", map[string]map[string]any{
		"1":  {"usd": 1, "credits": 1},
		"2":  {"usd": 2, "credits": 2},
		"5":  {"usd": 5, "credits": 5},
		"10": {"usd": 10, "credits": 10},
		"20": {"usd": 20, "credits": 21},
		"50": {"usd": 50, "credits": 52},
	})
}
