// Package validation checks cachekit configuration.
//
// Struct tags cover single-field rules:
//
//	type RetryPolicy struct {
//	    MaxRetries  int     `mapstructure:"max_retries" validate:"gte=0"`
//	    JitterRatio float64 `mapstructure:"jitter_ratio" validate:"gte=0,lte=1"`
//	}
//	err := validation.Validate(cfg)
//
// The programmatic Validator covers rules that span fields:
//
//	v := validation.New()
//	v.Merge("retry", validation.Validate(cfg.Retry))
//	v.AtMost("retry.base_delay", cfg.Retry.BaseDelay, cfg.Retry.MaxDelay, "retry.max_delay")
//	err := v.Err()
//
// Failures surface as an errors.AppError with code INVALID_INPUT and the
// per-field messages under the "fields" detail.
package validation
