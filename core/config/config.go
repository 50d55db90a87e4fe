package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cache   sync.Map
	envOnce sync.Once
)

// Load parses environment variables into dst. The first successful load of a
// type is cached and copied into dst on later calls.
func Load[T any](dst *T) error {
	if dst == nil {
		return ErrNilDestination
	}

	key := reflect.TypeFor[T]()
	if cached, ok := cache.Load(key); ok {
		*dst = cached.(T)
		return nil
	}

	if err := Parse(dst); err != nil {
		return err
	}

	actual, _ := cache.LoadOrStore(key, *dst)
	*dst = actual.(T)
	return nil
}

// MustLoad is like Load but panics on failure. Intended for application startup.
func MustLoad[T any](dst *T) {
	if err := Load(dst); err != nil {
		panic(err)
	}
}

// Parse loads dst from the environment without consulting or filling the cache.
func Parse[T any](dst *T) error {
	if dst == nil {
		return ErrNilDestination
	}
	loadDotEnv()
	if err := env.Parse(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nil
}

// loadDotEnv reads .env once; a missing file is not an error.
func loadDotEnv() {
	envOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Printf("config: failed to load .env: %v\n", err)
		}
	})
}
