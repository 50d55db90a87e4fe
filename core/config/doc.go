// Package config loads environment variables into structs.
//
// A .env file in the working directory is read once, on first use, and then
// caarlos0/env parses the struct tags:
//
//	type RouterConfig struct {
//		HTML5Mode  bool   `env:"STATEROUTER_HTML5_MODE" envDefault:"false"`
//		HashPrefix string `env:"STATEROUTER_HASH_PREFIX"`
//	}
//
//	var cfg RouterConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Load caches the first successful result per type, so later calls with the
// same type see the same values even if the environment changed. Parse skips
// the cache; use it when the environment is expected to change, as in tests
// or one-shot commands. MustLoad panics and belongs in program startup.
package config
