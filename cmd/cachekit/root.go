package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/cachekit/client"
	"github.com/kbukum/cachekit/config"
	"github.com/kbukum/cachekit/version"
)

const serviceName = "cachekit"

var (
	configFile string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "cachekit",
	Short: "Resilient read-through cache toolkit",
	Long: `cachekit puts a TTL cache, retries with backoff, a circuit breaker
and a queueing rate limiter in front of an unreliable dependency.

Configuration is read from config.yml, a .env file and CACHEKIT_*
environment variables, in increasing order of precedence.`,
	Version:      version.GetShortVersion(),
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./cmd/cachekit/config.yml or ./config.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file (default: ./cmd/cachekit/.env or .env)")
}

// loadConfig resolves the client configuration from file, dotenv and
// environment on top of client.Defaults.
func loadConfig() (client.Config, error) {
	var cfg client.Config
	opts := []config.LoaderOption{config.WithDefaults(client.Defaults(serviceName))}
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	err := config.Load(serviceName, &cfg, opts...)
	return cfg, err
}
