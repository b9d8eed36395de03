// Package config provides runtime configuration values for the service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the HTTP server, the document
// store, and the live feeds.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Document store.
	DataDir        string
	InMemory       bool
	BadgerGCEvery  time.Duration
	BadgerGCRatio  float64

	// Feed delivery.
	FirstResultTimeout time.Duration
	WSWriteTimeout     time.Duration
	WSPingInterval     time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 15),

		DataDir:       getenv("DATA_DIR", "./data"),
		InMemory:      boolenv("STORE_IN_MEMORY", false),
		BadgerGCEvery: durenvs("BADGER_GC_INTERVAL", 300),
		BadgerGCRatio: 0.5,

		FirstResultTimeout: durenvs("FIRST_RESULT_TIMEOUT", 5),
		WSWriteTimeout:     durenvs("WS_WRITE_TIMEOUT", 10),
		WSPingInterval:     durenvs("WS_PING_INTERVAL", 30),
	}
}
