package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"golang.org/x/crypto/bcrypt"

	"github.com/vantagehq/vantage/internal/ownership"
	"github.com/vantagehq/vantage/internal/ratelimit"
	"github.com/vantagehq/vantage/internal/rbac"
	"github.com/vantagehq/vantage/internal/users"
)

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Auth   AuthConfig    `yaml:"auth"`
	Google *GoogleConfig `yaml:"google,omitempty"`

	// RateLimit holds per-tier overrides keyed by tier name, e.g.
	//   ratelimit:
	//     login: { window: 30m, max: 3 }
	//     health: { disabled: true }
	RateLimit map[string]map[string]any `yaml:"ratelimit,omitempty"`

	Audit AuditConfig `yaml:"audit"`

	// Users are seeded into the user store at startup.
	Users []SeedUser `yaml:"users,omitempty"`

	// Ownership maps a resource name to an ownership expression, e.g.
	//   ownership:
	//     users: user.id == params.id
	Ownership map[string]string `yaml:"ownership,omitempty"`

	ownershipRules map[string]*ownership.Rule
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	Environment string `yaml:"environment"` // "development" or "production"
	CORSOrigin  string `yaml:"cors_origin"`
}

func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	switch c.Environment {
	case "":
		c.Environment = "development"
	case "development", "production":
	default:
		return fmt.Errorf("environment must be 'development' or 'production', got '%s'", c.Environment)
	}
	return nil
}

func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// AuthConfig holds the token signing settings. A zero TTL falls back to
// the token service defaults (15m access, 7d refresh).
type AuthConfig struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	Issuer        string        `yaml:"issuer"`
}

func (c *AuthConfig) Validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("access_secret is required")
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("refresh_secret is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("access_secret and refresh_secret must differ")
	}
	if c.AccessTTL < 0 {
		return fmt.Errorf("access_ttl must not be negative")
	}
	if c.RefreshTTL < 0 {
		return fmt.Errorf("refresh_ttl must not be negative")
	}
	return nil
}

// GoogleConfig enables Google sign-in when present.
type GoogleConfig struct {
	ClientID string `yaml:"client_id"`
}

func (c *GoogleConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	return nil
}

// AuditConfig selects where security events are written.
type AuditConfig struct {
	Type string `yaml:"type"` // "memory", "file" or "none"
	Path string `yaml:"path"`
}

func (c *AuditConfig) Validate() error {
	switch c.Type {
	case "":
		c.Type = "memory"
	case "memory", "none":
	case "file":
		if c.Path == "" {
			return fmt.Errorf("path is required for file audit")
		}
	default:
		return fmt.Errorf("unknown audit type '%s'", c.Type)
	}
	return nil
}

// SeedUser is an account created at startup if it does not exist yet.
// Passwords are stored pre-hashed so config files never carry plaintext;
// the hashpw command generates the hashes.
type SeedUser struct {
	ID           string `yaml:"id,omitempty"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
	FullName     string `yaml:"full_name"`
	Role         string `yaml:"role"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("validating server: %w", err)
	}
	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("validating auth: %w", err)
	}
	if c.Google != nil {
		if err := c.Google.Validate(); err != nil {
			return fmt.Errorf("validating google: %w", err)
		}
	}
	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("validating audit: %w", err)
	}

	registry := rbac.NewRegistry()
	seenEmails := make(map[string]struct{})
	for idx, u := range c.Users {
		if u.Email == "" {
			return fmt.Errorf("user at index %d has empty email", idx)
		}
		email := users.NormalizeEmail(u.Email)
		if _, exists := seenEmails[email]; exists {
			return fmt.Errorf("user email '%s' is not unique", email)
		}
		seenEmails[email] = struct{}{}
		if u.PasswordHash == "" {
			return fmt.Errorf("user '%s' has empty password_hash", email)
		}
		if _, err := bcrypt.Cost([]byte(u.PasswordHash)); err != nil {
			return fmt.Errorf("user '%s' has a malformed password_hash (generate one with 'vantage hashpw'): %w", email, err)
		}
		if !registry.IsValidRole(rbac.Role(u.Role)) {
			return fmt.Errorf("user '%s' has unknown role '%s'", email, u.Role)
		}
	}

	if _, err := c.Tiers(); err != nil {
		return fmt.Errorf("validating ratelimit: %w", err)
	}

	rules := make(map[string]*ownership.Rule, len(c.Ownership))
	for resource, src := range c.Ownership {
		rule, err := ownership.Compile(src)
		if err != nil {
			return fmt.Errorf("validating ownership rule for '%s': %w", resource, err)
		}
		rules[resource] = rule
	}
	c.ownershipRules = rules

	return nil
}

// Tiers returns the rate-limit tier table with overrides applied.
func (c *Config) Tiers() ([]ratelimit.Tier, error) {
	overrides, err := ratelimit.DecodeOverrides(c.RateLimit)
	if err != nil {
		return nil, err
	}
	return ratelimit.ApplyOverrides(ratelimit.DefaultTiers(), overrides)
}

// OwnershipRules returns the compiled ownership predicates keyed by
// resource name. Only valid after Validate has run.
func (c *Config) OwnershipRules() map[string]*ownership.Rule {
	return c.ownershipRules
}
