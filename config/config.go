package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	Proctoring   Proctoring
	GeminiApiKey string
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Proctoring holds the attempt-lifecycle tuning knobs.
type Proctoring struct {
	// DisconnectThresholdSeconds separates active from disconnected expiry:
	// a heartbeat older than this at expiry time means the candidate was gone.
	DisconnectThresholdSeconds int
	// SweepIntervalSeconds is how often the expiry sweeper scans live attempts.
	SweepIntervalSeconds int
	// GraceMinutes is the default fixed-schedule start window when an exam
	// does not set its own.
	GraceMinutes int
	// TriagePoolLimit caps the number of live sessions scored per triage query.
	TriagePoolLimit int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DISCONNECT_THRESHOLD_SECONDS", 60)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 30)
	viper.SetDefault("GRACE_MINUTES", 10)
	viper.SetDefault("TRIAGE_POOL_LIMIT", 200)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Proctoring.DisconnectThresholdSeconds = viper.GetInt("DISCONNECT_THRESHOLD_SECONDS")
	config.Proctoring.SweepIntervalSeconds = viper.GetInt("SWEEP_INTERVAL_SECONDS")
	config.Proctoring.GraceMinutes = viper.GetInt("GRACE_MINUTES")
	config.Proctoring.TriagePoolLimit = viper.GetInt("TRIAGE_POOL_LIMIT")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Str("port", config.Server.Port).Msg("Config loaded")
	return &config, nil
}
