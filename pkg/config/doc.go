// Package config loads application configuration from environment variables
// into tagged structs, with an optional .env file picked up once per process.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. Each
// configuration type is parsed at most once; later calls for the same type
// return the cached copy, so independent components can load their own config
// structs without coordinating.
//
//	type RedisConfig struct {
//	    URL string `env:"REDIS_URL,required"`
//	}
//
//	var cfg RedisConfig
//	config.MustLoad(&cfg)
//
// Sentinel errors (ErrParsingConfig, ErrNilPointer) compare with errors.Is.
package config
