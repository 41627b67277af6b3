// Package config provides configuration parsing and management for the
// monitor.
//
// It handles both command-line flags and environment variables, with flags
// taking precedence over environment variables. The Config struct contains
// all runtime configuration needed by the monitor service.
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/dtstail/pkg/onc"
	"github.com/HatiCode/dtstail/pkg/tail"
)

type Config struct {
	Listen        string
	APIURL        string
	Device        string
	Token         string
	StartTime     string
	RowLimit      int
	Backoff       time.Duration
	FetchTimeout  time.Duration
	Trim          bool
	IncludeRaw    bool
	ChannelPoints map[int]int
	StaleAfter    time.Duration
	MQTTBroker    string
	MQTTTopic     string
	MQTTUsername  string
	MQTTPassword  string
	LogFormat     string
	LogLevel      string
}

// ParseFlags parses command-line flags and environment variables into a
// Config. Exits with status 1 if required flags (device, token) are missing
// or the channel points table cannot be parsed.
func ParseFlags() *Config {
	cfg := &Config{}

	// Server
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8085"), "HTTP listen address")

	// Raw data service
	flag.StringVar(&cfg.APIURL, "api-url", getEnv("ONC_API_URL", onc.DefaultBaseURL), "Rawdata service URL")
	flag.StringVar(&cfg.Device, "device", getEnv("DEVICE_CODE", ""), "Device code to tail (required)")
	flag.StringVar(&cfg.Token, "token", getEnv("ONC_TOKEN", ""), "Rawdata service token (required)")
	flag.DurationVar(&cfg.FetchTimeout, "fetch-timeout", getEnvDuration("FETCH_TIMEOUT", 30*time.Second), "HTTP timeout per fetch")

	// Tailing
	flag.StringVar(&cfg.StartTime, "start-time", getEnv("START_TIME", ""), "Cursor to start from (default: tail the live end)")
	flag.IntVar(&cfg.RowLimit, "row-limit", getEnvInt("ROW_LIMIT", tail.DefaultRowLimit), "Records per page")
	flag.DurationVar(&cfg.Backoff, "backoff", getEnvDuration("BACKOFF", tail.DefaultBackoff), "Pause between probes and failed fetches")

	// Decoding
	flag.BoolVar(&cfg.Trim, "trim", getEnvBool("TRIM", true), "Trim frames to the external sensing region")
	flag.BoolVar(&cfg.IncludeRaw, "include-raw", getEnvBool("INCLUDE_RAW", false), "Keep raw Stokes buffers on decoded frames")
	var channelPoints string
	flag.StringVar(&channelPoints, "channel-points", getEnv("CHANNEL_POINTS", ""), "Channel points table as channel:count pairs, e.g. 1:2206,2:1561 (default: built-in table)")

	// Snapshot API
	flag.DurationVar(&cfg.StaleAfter, "stale-after", getEnvDuration("STALE_AFTER", 10*time.Minute), "Age after which the served snapshot is marked stale")

	// MQTT emitter
	flag.StringVar(&cfg.MQTTBroker, "mqtt-broker", getEnv("MQTT_BROKER", ""), "MQTT broker URL, e.g. tcp://localhost:1883 (empty: disabled)")
	flag.StringVar(&cfg.MQTTTopic, "mqtt-topic", getEnv("MQTT_TOPIC", "dts/frames"), "MQTT topic prefix for frame summaries")
	flag.StringVar(&cfg.MQTTUsername, "mqtt-username", getEnv("MQTT_USERNAME", ""), "MQTT username")
	flag.StringVar(&cfg.MQTTPassword, "mqtt-password", getEnv("MQTT_PASSWORD", ""), "MQTT password")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format (text|json)")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")

	flag.Parse()

	// Validation
	if cfg.Device == "" {
		fmt.Fprintln(os.Stderr, "Error: -device is required")
		flag.Usage()
		os.Exit(1)
	}
	if cfg.Token == "" {
		fmt.Fprintln(os.Stderr, "Error: -token is required")
		flag.Usage()
		os.Exit(1)
	}
	if channelPoints != "" {
		points, err := ParseChannelPoints(channelPoints)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -channel-points: %v\n", err)
			os.Exit(1)
		}
		cfg.ChannelPoints = points
	}

	return cfg
}

// ParseChannelPoints parses a table of the form "1:2206,2:1561" mapping
// instrument channels to external point counts.
func ParseChannelPoints(s string) (map[int]int, error) {
	points := make(map[int]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		channelStr, countStr, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("entry %q is not channel:count", pair)
		}
		channel, err := strconv.Atoi(strings.TrimSpace(channelStr))
		if err != nil {
			return nil, fmt.Errorf("invalid channel in %q", pair)
		}
		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return nil, fmt.Errorf("invalid point count in %q", pair)
		}
		if channel < 1 || count < 1 {
			return nil, fmt.Errorf("channel and point count must be positive in %q", pair)
		}
		points[channel] = count
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	return points, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
