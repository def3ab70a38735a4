package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Checkin  CheckinConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// CheckinConfig bounds when gate check-in is open relative to the session
// start time. Zero values disable the corresponding bound.
type CheckinConfig struct {
	OpensBefore time.Duration // check-in opens this long before startsAt
	ClosesAfter time.Duration // check-in closes this long after startsAt
}

var AppConfig *Config

func LoadConfig() *Config {
	AppConfig = &Config{
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Checkin:  GetCheckinConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test DB runs on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test Redis runs on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Database: *testConfig,
		Redis:    testRedisConfig,
		// gate window disabled in tests unless a test sets one explicitly
		Checkin: CheckinConfig{},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetCheckinConfig() CheckinConfig {
	opens, err := time.ParseDuration(getEnv("CHECKIN_OPENS_BEFORE", "3h"))
	if err != nil {
		panic(err)
	}
	closes, err := time.ParseDuration(getEnv("CHECKIN_CLOSES_AFTER", "4h"))
	if err != nil {
		panic(err)
	}

	return CheckinConfig{
		OpensBefore: opens,
		ClosesAfter: closes,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
