// Package config loads service configuration with Viper.
//
// A config.yml is looked up in the usual places (./config.yml, ./config/,
// ./cmd/<service>/, /etc/<service>/), a .env file is loaded with godotenv,
// and environment variables override file values. Both plain nested keys
// (ENGINE_MAX_PARALLEL) and service-prefixed keys (DAGFLOW_ENGINE_MAX_PARALLEL)
// are honored.
//
//	var cfg app.Config
//	if err := config.LoadConfig("dagflow", &cfg); err != nil { ... }
package config
