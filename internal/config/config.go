package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`

	// Engine настройки движка жизненного цикла слотов.
	Engine EngineConfig `yaml:"engine"`

	// Karma числовые значения наград. Это конфигурационные данные,
	// не логика движка.
	Karma KarmaConfig `yaml:"karma"`

	Payments struct {
		PlatformFeePct float64 `yaml:"platform_fee_pct"`
	} `yaml:"payments"`

	FirstAdminEmail    string `yaml:"first_admin_email"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

type EngineConfig struct {
	ClaimTTLHours      int    `yaml:"claim_ttl_hours"`
	AutoAcceptDays     int    `yaml:"auto_accept_days"`
	DisputeWindowDays  int    `yaml:"dispute_window_days"`
	AdminClaimTTLDays  int    `yaml:"admin_claim_ttl_days"`
	MinFeedbackChars   int    `yaml:"min_feedback_chars"`
	MinStructuredWords int    `yaml:"min_structured_words"`
	HourlySweepCron    string `yaml:"hourly_sweep_cron"`
	DailySweepCron     string `yaml:"daily_sweep_cron"`
}

type KarmaConfig struct {
	SubmissionBonus    int `yaml:"submission_bonus"`
	FirstOfDayBonus    int `yaml:"first_of_day_bonus"`
	Streak5Bonus       int `yaml:"streak_5_bonus"`
	Streak10Bonus      int `yaml:"streak_10_bonus"`
	Streak25Bonus      int `yaml:"streak_25_bonus"`
	Accept3StarBonus   int `yaml:"accept_3_star_bonus"`
	Accept4StarBonus   int `yaml:"accept_4_star_bonus"`
	Accept5StarBonus   int `yaml:"accept_5_star_bonus"`
	AcceptUnratedBonus int `yaml:"accept_unrated_bonus"`
	AutoAcceptBonus    int `yaml:"auto_accept_bonus"`
	RejectPenalty      int `yaml:"reject_penalty"`
	RejectSpamPenalty  int `yaml:"reject_spam_penalty"`
	AbandonPenalty     int `yaml:"abandon_penalty"`
	DisputeWonBonus    int `yaml:"dispute_won_bonus"`
	DisputeLostPenalty int `yaml:"dispute_lost_penalty"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Режим окружения (тесты, docker): всё из переменных
	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60
	cfg.FirstAdminEmail = os.Getenv("FIRST_ADMIN_EMAIL")
	cfg.FirstAdminPassword = os.Getenv("FIRST_ADMIN_PASSWORD")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	e := &cfg.Engine
	if e.ClaimTTLHours == 0 {
		e.ClaimTTLHours = 72
	}
	if e.AutoAcceptDays == 0 {
		e.AutoAcceptDays = 7
	}
	if e.DisputeWindowDays == 0 {
		e.DisputeWindowDays = 7
	}
	if e.AdminClaimTTLDays == 0 {
		e.AdminClaimTTLDays = 7
	}
	if e.MinFeedbackChars == 0 {
		e.MinFeedbackChars = 50
	}
	if e.MinStructuredWords == 0 {
		e.MinStructuredWords = 50
	}
	if e.HourlySweepCron == "" {
		e.HourlySweepCron = "0 * * * *"
	}
	if e.DailySweepCron == "" {
		e.DailySweepCron = "30 3 * * *"
	}

	k := &cfg.Karma
	if k.SubmissionBonus == 0 {
		k.SubmissionBonus = 10
	}
	if k.FirstOfDayBonus == 0 {
		k.FirstOfDayBonus = 5
	}
	if k.Streak5Bonus == 0 {
		k.Streak5Bonus = 25
	}
	if k.Streak10Bonus == 0 {
		k.Streak10Bonus = 60
	}
	if k.Streak25Bonus == 0 {
		k.Streak25Bonus = 150
	}
	if k.Accept3StarBonus == 0 {
		k.Accept3StarBonus = 15
	}
	if k.Accept4StarBonus == 0 {
		k.Accept4StarBonus = 25
	}
	if k.Accept5StarBonus == 0 {
		k.Accept5StarBonus = 40
	}
	if k.AcceptUnratedBonus == 0 {
		k.AcceptUnratedBonus = 20
	}
	if k.AutoAcceptBonus == 0 {
		k.AutoAcceptBonus = 15
	}
	if k.RejectPenalty == 0 {
		k.RejectPenalty = 10
	}
	if k.RejectSpamPenalty == 0 {
		k.RejectSpamPenalty = 50
	}
	if k.AbandonPenalty == 0 {
		k.AbandonPenalty = 15
	}
	if k.DisputeWonBonus == 0 {
		k.DisputeWonBonus = 30
	}
	if k.DisputeLostPenalty == 0 {
		k.DisputeLostPenalty = 30
	}

	if cfg.Payments.PlatformFeePct == 0 {
		cfg.Payments.PlatformFeePct = 10
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
