// Package config loads cachekit configuration.
//
// Load resolves a YAML file and an optional .env file, then lets prefixed
// environment variables override any key:
//
//	var cfg client.Config
//	err := config.Load("cachekit", &cfg, config.WithConfigFile("config.yml"))
//
//	CACHEKIT_RETRY_MAX_RETRIES=5  ->  retry.max_retries
package config
