package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   Server
	Database Database
	Auth     Auth
	Exam     Exam
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

type Auth struct {
	JWTSecret string
}

// Exam holds the default test rules applied when a candidate has no assigned
// exam configuration, plus the cadence of the background sweeps.
type Exam struct {
	DefaultPassingScore int
	DefaultTimeLimitSec int
	DefaultSampleSize   int
	CertificateDelay    time.Duration
	CheckpointInterval  time.Duration
	SweepInterval       time.Duration
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("DEFAULT_PASSING_SCORE", 70)
	viper.SetDefault("DEFAULT_TIME_LIMIT_SEC", 3600)
	viper.SetDefault("DEFAULT_SAMPLE_SIZE", 30)
	viper.SetDefault("CERTIFICATE_DELAY_HOURS", 48)
	viper.SetDefault("CHECKPOINT_INTERVAL_SEC", 30)
	viper.SetDefault("SWEEP_INTERVAL_SEC", 60)

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

	config.Auth.JWTSecret = viper.GetString("JWT_SECRET")

	config.Exam.DefaultPassingScore = viper.GetInt("DEFAULT_PASSING_SCORE")
	config.Exam.DefaultTimeLimitSec = viper.GetInt("DEFAULT_TIME_LIMIT_SEC")
	config.Exam.DefaultSampleSize = viper.GetInt("DEFAULT_SAMPLE_SIZE")
	config.Exam.CertificateDelay = time.Duration(viper.GetInt("CERTIFICATE_DELAY_HOURS")) * time.Hour
	config.Exam.CheckpointInterval = time.Duration(viper.GetInt("CHECKPOINT_INTERVAL_SEC")) * time.Second
	config.Exam.SweepInterval = time.Duration(viper.GetInt("SWEEP_INTERVAL_SEC")) * time.Second

	log.Info().Str("server_port", config.Server.Port).Str("db_host", config.Database.Host).Msg("Config loaded")
	return &config, nil
}
