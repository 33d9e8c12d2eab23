package config

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all server configuration
type Config struct {
	Port           int           // Local listen port, taken from LOCAL_PROXY_URL
	UpstreamURL    string        // WebSocket URL of the voice server
	DeviceToken    string        // Bearer token presented to the upstream
	EnableToken    bool          // When false the Authorization header is omitted
	DeviceID       string        // Stable per-host identity, derived from the MAC address
	ClientID       string        // Fresh per-process identity
	RedisURL       string        // Optional session mirror; empty disables Redis
	RedisPassword  string
	MaxSessions    int
	SessionTimeout time.Duration
	DialTimeout    time.Duration // Upstream handshake deadline
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:           5002,
		UpstreamURL:    "ws://localhost:9005",
		DeviceToken:    "123",
		EnableToken:    true,
		DeviceID:       deviceID(),
		ClientID:       uuid.NewString(),
		RedisURL:       "",
		RedisPassword:  "",
		MaxSessions:    100,
		SessionTimeout: 30 * time.Minute,
		DialTimeout:    10 * time.Second,
		AllowedOrigins: []string{"*"},
	}

	// Optional: LOCAL_PROXY_URL (only the port matters; the bridge always
	// binds all interfaces)
	if proxyURL := os.Getenv("LOCAL_PROXY_URL"); proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCAL_PROXY_URL: %w", err)
		}
		if portStr := u.Port(); portStr != "" {
			p, err := strconv.Atoi(portStr)
			if err != nil {
				return nil, fmt.Errorf("invalid LOCAL_PROXY_URL port: %w", err)
			}
			config.Port = p
		}
	}

	// Optional: WS_URL
	if wsURL := os.Getenv("WS_URL"); wsURL != "" {
		u, err := url.Parse(wsURL)
		if err != nil {
			return nil, fmt.Errorf("invalid WS_URL: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return nil, fmt.Errorf("invalid WS_URL: scheme must be ws or wss")
		}
		config.UpstreamURL = wsURL
	}

	// Optional: DEVICE_TOKEN
	if token := os.Getenv("DEVICE_TOKEN"); token != "" {
		config.DeviceToken = token
	}

	// Optional: ENABLE_TOKEN
	if enable := os.Getenv("ENABLE_TOKEN"); enable != "" {
		e, err := strconv.ParseBool(enable)
		if err != nil {
			return nil, fmt.Errorf("invalid ENABLE_TOKEN: %w", err)
		}
		config.EnableToken = e
	}

	// Optional: DEVICE_ID (overrides the MAC-derived default)
	if id := os.Getenv("DEVICE_ID"); id != "" {
		config.DeviceID = id
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: DIAL_TIMEOUT (in seconds)
	if timeout := os.Getenv("DIAL_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid DIAL_TIMEOUT: %w", err)
		}
		config.DialTimeout = time.Duration(t) * time.Second
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	return config, nil
}

// UpstreamHeaders builds the handshake headers that identify this bridge to
// the voice server.
func (c *Config) UpstreamHeaders() http.Header {
	h := http.Header{}
	h.Set("Device-Id", c.DeviceID)
	h.Set("Client-Id", c.ClientID)
	h.Set("Protocol-Version", "1")
	if c.EnableToken {
		h.Set("Authorization", "Bearer "+c.DeviceToken)
	}
	return h
}

// deviceID returns the MAC address of the first non-loopback interface, or a
// random UUID on hosts where none is available.
func deviceID() string {
	ifaces, err := net.Interfaces()
	if err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
				continue
			}
			return iface.HardwareAddr.String()
		}
	}
	return uuid.NewString()
}
