package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	FirebaseProject string
	LocalStorePath  string
	ClearnodeWSURL  string
	ClearnodeNet    string
	LifiAPIURL      string
	LifiAPIKey      string
	EnsAPIURL       string
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		LocalStorePath:  getEnv("LOCAL_STORE_PATH", "./data/splitchain_groups.json"),
		ClearnodeWSURL:  getEnv("CLEARNODE_WS_URL", "wss://clearnet.yellow.com/ws"),
		ClearnodeNet:    getEnv("CLEARNODE_NETWORK", "sandbox"),
		LifiAPIURL:      getEnv("LIFI_API_URL", "https://li.quest/v1"),
		LifiAPIKey:      getEnv("LIFI_API_KEY", ""),
		EnsAPIURL:       getEnv("ENS_API_URL", "https://api.ensideas.com/ens/resolve"),
	}

	return config, nil
}

// UseRemoteStore reports whether the realtime document store is configured.
// Absent configuration selects the local file fallback; the choice is made
// once here, at startup.
func (c *Config) UseRemoteStore() bool {
	return c.FirebaseProject != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
