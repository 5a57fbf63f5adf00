package admsession

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imoveisdeluxo/admsession/credential"
	"github.com/imoveisdeluxo/admsession/identity"
)

// Config is the console configuration. The zero value is not usable; start
// from DefaultConfig or LoadConfigFile.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Access      AccessConfig      `yaml:"access"`
	Guard       GuardConfig       `yaml:"guard"`
	Audit       AuditConfig       `yaml:"audit"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// APIConfig locates the listing platform API.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	SessionsPath string        `yaml:"sessions_path"`
	GraphQLURL   string        `yaml:"graphql_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

// CredentialBackend selects where the session is persisted.
type CredentialBackend string

const (
	BackendMemory CredentialBackend = "memory"
	BackendFile   CredentialBackend = "file"
	BackendRedis  CredentialBackend = "redis"
)

// CredentialsConfig configures the credential store.
type CredentialsConfig struct {
	Backend CredentialBackend `yaml:"backend"`
	TTL     time.Duration     `yaml:"ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	Dir     string `yaml:"dir"`
	Profile string `yaml:"profile"`
	// EncryptionKey is a base64 32-byte key sealing the file backend.
	// Empty stores the file in plain form, readable only by its owner.
	EncryptionKey string `yaml:"encryption_key"`
}

// AccessConfig decides who may hold a console session.
type AccessConfig struct {
	AllowedRoles []identity.Role `yaml:"allowed_roles"`
}

// GuardConfig configures the route guard.
type GuardConfig struct {
	PublicPath string `yaml:"public_path"`
}

// AuditConfig configures audit event dispatch.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig configures the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns the console defaults: admins only, two-day sessions
// kept in memory, sign-in at "/".
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:      "http://localhost:3333",
			SessionsPath: "/sessions",
			GraphQLURL:   "http://localhost:3333/graphql",
			Timeout:      15 * time.Second,
		},
		Credentials: CredentialsConfig{
			Backend:     BackendMemory,
			TTL:         credential.DefaultTTL,
			RedisPrefix: credential.DefaultRedisPrefix,
			Profile:     credential.DefaultProfile,
		},
		Access: AccessConfig{
			AllowedRoles: []identity.Role{identity.RoleAdmin},
		},
		Guard: GuardConfig{
			PublicPath: "/",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Access.AllowedRoles = slices.Clone(cfg.Access.AllowedRoles)
	return out
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	// API
	if err := checkHTTPURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if c.API.GraphQLURL != "" {
		if err := checkHTTPURL("api.graphql_url", c.API.GraphQLURL); err != nil {
			return err
		}
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be >= 0")
	}

	// Credentials
	if c.Credentials.TTL <= 0 {
		return errors.New("credentials.ttl must be > 0")
	}
	switch c.Credentials.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Credentials.Profile == "" || strings.ContainsAny(c.Credentials.Profile, `/\`) {
			return fmt.Errorf("credentials.profile %q is not a valid profile name", c.Credentials.Profile)
		}
		if c.Credentials.EncryptionKey != "" {
			if _, err := credential.NewXChaCha20SealerFromBase64(c.Credentials.EncryptionKey); err != nil {
				return fmt.Errorf("credentials.encryption_key: %w", err)
			}
		}
	case BackendRedis:
		if c.Credentials.RedisPrefix == "" {
			return errors.New("credentials.redis_prefix must not be empty")
		}
		if c.Credentials.RedisDB < 0 {
			return errors.New("credentials.redis_db must be >= 0")
		}
	default:
		return fmt.Errorf("credentials.backend %q is not one of memory, file, redis", c.Credentials.Backend)
	}

	// Access
	if len(c.Access.AllowedRoles) == 0 {
		return errors.New("access.allowed_roles must not be empty")
	}
	for _, r := range c.Access.AllowedRoles {
		if strings.TrimSpace(string(r)) == "" {
			return errors.New("access.allowed_roles must not contain empty roles")
		}
	}

	// Guard
	if !strings.HasPrefix(c.Guard.PublicPath, "/") {
		return errors.New("guard.public_path must start with /")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit.buffer_size must be > 0 when audit is enabled")
	}

	return nil
}

func checkHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) url", field)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads and validates the YAML file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return ParseConfig(bytes.NewReader(data))
}
