package main

import (
	"flag"
	"log/slog"
	"os"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"saquabus.org/internal/appconf"
	"saquabus.org/internal/logging"
)

func main() {
	var (
		configPath string
		port       int
		env        string
		apiKeys    string
	)
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.IntVar(&port, "port", 0, "API server port (overrides config)")
	flag.StringVar(&env, "env", "", "environment: development, test or production (overrides config)")
	flag.StringVar(&apiKeys, "api-keys", "", "comma separated admin API keys (overrides config)")
	flag.Parse()

	cfg, err := appconf.LoadWithFile(configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if port != 0 {
		cfg.Port = port
	}
	if env != "" {
		cfg.Env = appconf.EnvFlagToEnvironment(env)
	}
	if apiKeys != "" {
		cfg.ApiKeys = appconf.ParseAPIKeys(apiKeys)
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		slog.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)
	if err := Run(srv, coreApp, api); err != nil {
		logging.LogError(coreApp.Logger, "server stopped with error", err)
		os.Exit(1)
	}
}
