package main

import (
	"os"
	"strconv"
	"time"
)

type config struct {
	Addr        string
	Store       string
	SQLitePath  string
	DatabaseURL string
	MongoURL    string
	MongoDB     string
	RedisURL    string
	JWTSecret   string
	TokenTTL    time.Duration

	TransferConcurrency   int
	TransferTimeout       time.Duration
	TransferMaxRetries    int
	TransferRetryInterval time.Duration
}

func loadConfig() config {
	return config{
		Addr:        getenv("SETTLE_ADDR", ":8180"),
		Store:       getenv("SETTLE_STORE", "memory"),
		SQLitePath:  getenv("SETTLE_SQLITE_PATH", "./settle.db"),
		DatabaseURL: getenv("SETTLE_DATABASE_URL", ""),
		MongoURL:    getenv("SETTLE_MONGO_URL", ""),
		MongoDB:     getenv("SETTLE_MONGO_DB", "settle"),
		RedisURL:    getenv("SETTLE_REDIS_URL", ""),
		JWTSecret:   getenv("SETTLE_JWT_SECRET", ""),
		TokenTTL:    time.Duration(getenvInt("SETTLE_TOKEN_TTL_SECONDS", 86400)) * time.Second,

		TransferConcurrency:   getenvInt("SETTLE_TRANSFER_CONCURRENCY", 4),
		TransferTimeout:       time.Duration(getenvInt("SETTLE_TRANSFER_TIMEOUT_SECONDS", 10)) * time.Second,
		TransferMaxRetries:    getenvInt("SETTLE_TRANSFER_MAX_RETRIES", 3),
		TransferRetryInterval: time.Duration(getenvInt("SETTLE_TRANSFER_RETRY_MS", 250)) * time.Millisecond,
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
