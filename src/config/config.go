package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Config captures environment driven configuration for the EventConnect services.
type Config struct {
	HTTPAddr        string
	StoreBackend    string
	ProjectID       string
	CredentialsFile string
	StorageBucket   string

	PostgresURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OpenSearchAddresses []string
	OpenSearchUsername  string
	OpenSearchPassword  string
	OpenSearchIndex     string

	LogLevel  string
	LogFormat string
}

// PushEnabled reports whether device tokens can be stored, which push needs.
func (cfg Config) PushEnabled() bool {
	return cfg.PostgresURL != ""
}

// SearchEnabled reports whether an OpenSearch cluster is configured.
func (cfg Config) SearchEnabled() bool {
	return len(cfg.OpenSearchAddresses) > 0
}

// Load parses configuration values from the current process environment.
// Missing required values and invalid values are reported together.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:        "0.0.0.0:2525",
		StoreBackend:    StoreFirestore,
		StorageBucket:   "eventconnect-images",
		RedisAddr:       "localhost:6379",
		OpenSearchIndex: "user-search",
		LogLevel:        "info",
		LogFormat:       "text",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if addr := env("EVENTCONNECT_HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}

	if backend := strings.ToLower(env("EVENTCONNECT_STORE")); backend != "" {
		switch backend {
		case StoreFirestore, StoreMemory:
			cfg.StoreBackend = backend
		default:
			invalid = append(invalid, "EVENTCONNECT_STORE")
		}
	}

	if project := env("GOOGLE_CLOUD_PROJECT"); project == "" {
		missing = append(missing, "GOOGLE_CLOUD_PROJECT")
	} else {
		cfg.ProjectID = project
	}

	cfg.CredentialsFile = env("GOOGLE_APPLICATION_CREDENTIALS")

	if bucket := env("EVENTCONNECT_STORAGE_BUCKET"); bucket != "" {
		cfg.StorageBucket = bucket
	}

	cfg.PostgresURL = env("EVENTCONNECT_POSTGRES_URL")

	if addr := env("EVENTCONNECT_REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	cfg.RedisPassword = os.Getenv("EVENTCONNECT_REDIS_PASSWORD")
	if dbValue := env("EVENTCONNECT_REDIS_DB"); dbValue != "" {
		db, err := strconv.Atoi(dbValue)
		if err != nil || db < 0 {
			invalid = append(invalid, "EVENTCONNECT_REDIS_DB")
		} else {
			cfg.RedisDB = db
		}
	}

	if addresses := env("EVENTCONNECT_OPENSEARCH_ADDRESSES"); addresses != "" {
		for _, address := range strings.Split(addresses, ",") {
			if address = strings.TrimSpace(address); address != "" {
				cfg.OpenSearchAddresses = append(cfg.OpenSearchAddresses, address)
			}
		}
	}
	cfg.OpenSearchUsername = env("EVENTCONNECT_OPENSEARCH_USERNAME")
	cfg.OpenSearchPassword = os.Getenv("EVENTCONNECT_OPENSEARCH_PASSWORD")
	if index := env("EVENTCONNECT_OPENSEARCH_INDEX"); index != "" {
		cfg.OpenSearchIndex = index
	}

	if level := env("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := strings.ToLower(env("LOG_FORMAT")); format != "" {
		switch format {
		case "text", "json":
			cfg.LogFormat = format
		default:
			invalid = append(invalid, "LOG_FORMAT")
		}
	}

	if len(missing) > 0 && len(invalid) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s; invalid environment variables: %s",
			strings.Join(missing, ", "), strings.Join(invalid, ", "))
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
