package staterouter

import (
	"fmt"
	"strconv"

	"github.com/dmitrymomot/staterouter/core/config"
	"github.com/dmitrymomot/staterouter/core/params"
)

// Config holds router settings loaded from the environment.
type Config struct {
	// HTML5Mode writes real paths instead of "#"-prefixed hrefs.
	HTML5Mode bool `env:"STATEROUTER_HTML5_MODE" envDefault:"false"`
	// HashPrefix follows "#" in hash mode hrefs, "!" gives "#!/path".
	HashPrefix string `env:"STATEROUTER_HASH_PREFIX"`
	BaseHref   string `env:"STATEROUTER_BASE_HREF" envDefault:"/"`
	// Strict makes a trailing slash significant.
	Strict          bool `env:"STATEROUTER_STRICT" envDefault:"true"`
	CaseInsensitive bool `env:"STATEROUTER_CASE_INSENSITIVE" envDefault:"false"`
	// DefaultSquash is "false", "true" or the text that replaces default values.
	DefaultSquash  string `env:"STATEROUTER_DEFAULT_SQUASH" envDefault:"false"`
	DeferIntercept bool   `env:"STATEROUTER_DEFER_INTERCEPT" envDefault:"false"`
	// InitialURL seeds the in-memory location when none is given.
	InitialURL string `env:"STATEROUTER_INITIAL_URL" envDefault:"/"`
}

// DefaultConfig returns the settings used when no config is given.
func DefaultConfig() Config {
	return Config{
		BaseHref:      "/",
		Strict:        true,
		DefaultSquash: "false",
		InitialURL:    "/",
	}
}

// LoadConfig reads Config from the environment and an optional .env file.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) squashPolicy() (params.SquashPolicy, error) {
	var raw any = c.DefaultSquash
	if b, err := strconv.ParseBool(c.DefaultSquash); err == nil {
		raw = b
	}
	policy, _, err := params.ParseSquash(raw)
	if err != nil {
		return params.NoSquash, fmt.Errorf("%w: default squash %q: %w", ErrInvalidConfig, c.DefaultSquash, err)
	}
	return policy, nil
}
