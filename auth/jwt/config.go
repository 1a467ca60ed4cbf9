package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported HMAC algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
)

// Config configures bearer token authentication of the API.
type Config struct {
	// Enabled turns on token checks. When off, vote stakeholders come from
	// the request body.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Secret is the HMAC signing key.
	Secret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `yaml:"method" mapstructure:"method"`

	// Issuer is checked against the "iss" claim when set.
	Issuer string `yaml:"issuer" mapstructure:"issuer"`

	// Audience is checked against the "aud" claim when set.
	Audience string `yaml:"audience" mapstructure:"audience"`

	// TokenTTL is the lifetime of issued tokens (default: 1h).
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = time.Hour
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Secret == "" {
		return errors.New("auth.jwt_secret is required when auth is enabled")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes (got: %d)", len(c.Secret))
	}
	if c.signingMethod() == nil {
		return fmt.Errorf("auth.method %q is not supported", c.Method)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("auth.token_ttl must be non-negative (got: %s)", c.TokenTTL)
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}
