package bootstrap

import (
	"github.com/kbukum/cachekit/config"
)

// Config is the constraint for application configuration types. Any struct
// embedding config.ServiceConfig gets GetServiceConfig through promotion and
// only needs its own ApplyDefaults and Validate, as client.Config has.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
