package config

import (
	"log"
	"os"

	"modguard/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads the configuration from environment variables and the tuning
// file. Secrets come from the environment (or .env); operational knobs come
// from data/modguard.yaml with sensible defaults when the file is absent.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		log.Fatal("Error: BOT_TOKEN environment variable not set")
	}

	appID := os.Getenv("APP_ID")
	if appID == "" {
		log.Fatal("Error: APP_ID environment variable not set")
	}

	webhookURL := os.Getenv("LOG_WEBHOOK_URL")
	if webhookURL == "" {
		log.Println("Warning: LOG_WEBHOOK_URL not set, operator logging will be disabled")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/modguard.db"
	}

	tuning, err := loadTuning()
	if err != nil {
		return nil, err
	}

	return &model.Config{
		BotToken:      token,
		AppID:         appID,
		LogWebhookURL: webhookURL,
		DatabasePath:  dbPath,
		Tuning:        tuning,
	}, nil
}

func loadTuning() (model.Tuning, error) {
	v := viper.New()
	v.SetConfigName("modguard")
	v.SetConfigType("yaml")
	v.AddConfigPath("data")

	v.SetDefault("expiry_poll_seconds", 300)
	v.SetDefault("platform_retry_attempts", 3)
	v.SetDefault("platform_retry_backoff_ms", 500)
	v.SetDefault("audit_lookback_entries", 25)
	v.SetDefault("mute_role_name", "Muted")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("Warning: data/modguard.yaml not found, using default tuning")
		} else {
			return model.Tuning{}, err
		}
	}

	var tuning model.Tuning
	if err := v.Unmarshal(&tuning); err != nil {
		return model.Tuning{}, err
	}
	return tuning, nil
}
