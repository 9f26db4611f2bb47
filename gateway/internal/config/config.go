package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	shared "github.com/Skotchmaster/autojournal/pkg/config"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string
	LogLevel   string
	AuthURL    string

	// Upstreams maps a path prefix under /api/v1 to a downstream service.
	// GATEWAY_UPSTREAMS=cars=http://cars:8081,records=http://records:8082
	Upstreams map[string]string
}

func Load() Config {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: cannot load .env: %v", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func FromEnv() (Config, error) {
	cfg := Config{
		ListenAddr: shared.EnvDefault("GATEWAY_ADDR", ":8080"),
		LogLevel:   shared.EnvDefault("LOG_LEVEL", "info"),
		AuthURL:    os.Getenv("AUTH_URL"),
		Upstreams:  map[string]string{},
	}
	if cfg.AuthURL == "" {
		return Config{}, fmt.Errorf("missing required env AUTH_URL")
	}

	for _, pair := range shared.CSV(os.Getenv("GATEWAY_UPSTREAMS")) {
		name, target, ok := strings.Cut(pair, "=")
		name, target = strings.TrimSpace(name), strings.TrimSpace(target)
		if !ok || name == "" || target == "" {
			return Config{}, fmt.Errorf("bad GATEWAY_UPSTREAMS entry %q", pair)
		}
		if name == "auth" {
			return Config{}, fmt.Errorf("upstream name %q is reserved", name)
		}
		cfg.Upstreams[name] = target
	}
	return cfg, nil
}
