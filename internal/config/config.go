package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Port            string
	DBConn          string
	LogLevel        string
	JWTSecret       string
	ModelDir        string
	MinTrainingRows int
	SyntheticRows   int
	TrainingSeed    int64
	ForestTrees     int
	RetrainSchedule string
	SMTPHost        string
	SMTPPort        string
	SMTPUsername    string
	SMTPPassword    string
	SenderEmail     string
	ReportEmail     string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5432 user=test password=test dbname=debts sslmode=disable"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		ModelDir:        getEnv("MODEL_DIR", "models/trained"),
		RetrainSchedule: getEnv("RETRAIN_SCHEDULE", "0 3 * * *"),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", ""),
		ReportEmail:     getEnv("REPORT_EMAIL", ""),
	}

	var err error
	if cfg.MinTrainingRows, err = getEnvInt("MIN_TRAINING_ROWS", 10); err != nil {
		return nil, err
	}
	if cfg.SyntheticRows, err = getEnvInt("SYNTHETIC_ROWS", 100); err != nil {
		return nil, err
	}
	if cfg.ForestTrees, err = getEnvInt("FOREST_TREES", 100); err != nil {
		return nil, err
	}
	seed, err := getEnvInt("TRAINING_SEED", 42)
	if err != nil {
		return nil, err
	}
	cfg.TrainingSeed = int64(seed)

	if cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.ModelDir == "" {
		return nil, fmt.Errorf("MODEL_DIR is required")
	}
	if cfg.MinTrainingRows < 2 {
		return nil, fmt.Errorf("MIN_TRAINING_ROWS must be at least 2")
	}
	if cfg.SyntheticRows < 2 {
		return nil, fmt.Errorf("SYNTHETIC_ROWS must be at least 2")
	}
	if cfg.ForestTrees < 1 {
		return nil, fmt.Errorf("FOREST_TREES must be positive")
	}
	if cfg.ReportEmail != "" && (cfg.SMTPHost == "" || cfg.SenderEmail == "") {
		return nil, fmt.Errorf("SMTP_HOST and SENDER_EMAIL are required when REPORT_EMAIL is set")
	}

	return cfg, nil
}

// ReportsEnabled reports whether training report e-mails are configured
func (c *Config) ReportsEnabled() bool {
	return c.ReportEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
