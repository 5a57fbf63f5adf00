package admsession

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/imoveisdeluxo/admsession/authapi"
	"github.com/imoveisdeluxo/admsession/credential"
	"github.com/imoveisdeluxo/admsession/graphql"
	"github.com/imoveisdeluxo/admsession/session"
	"github.com/imoveisdeluxo/admsession/transport"
)

// Builder assembles a Console. A Builder builds once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store     credential.Store
	auth      authapi.Authenticator
	transport http.RoundTripper
	auditSink AuditSink
	logger    zerolog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder holding DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
		now:    time.Now,
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client for the redis credential backend. The
// Console does not close a client it was given.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore overrides the configured credential backend.
func (b *Builder) WithCredentialStore(store credential.Store) *Builder {
	b.store = store
	return b
}

// WithAuthenticator overrides the HTTP client for the sessions endpoint.
func (b *Builder) WithAuthenticator(auth authapi.Authenticator) *Builder {
	b.auth = auth
	return b
}

// WithHTTPTransport sets the base round tripper under the console's chain.
func (b *Builder) WithHTTPTransport(rt http.RoundTripper) *Builder {
	b.transport = rt
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for latency, audit timestamps and expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the Console. It performs no
// I/O besides creating the credential directory for the file backend.
func (b *Builder) Build() (*Console, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Console{
		config:  cloneConfig(cfg),
		state:   session.NewState(),
		logger:  b.logger,
		now:     b.now,
		metrics: NewMetrics(cfg.Metrics),
		allowed: cloneConfig(cfg).Access.AllowedRoles,
	}

	store, ownedRedis, err := b.buildStore(cfg)
	if err != nil {
		return nil, err
	}
	c.store = store
	c.ownedRedis = ownedRedis

	c.loader = session.NewLoader(store, c.state,
		session.WithLogger(b.logger),
		session.WithClock(b.now),
	)

	base := b.transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.httpClient = &http.Client{
		Timeout:   cfg.API.Timeout,
		Transport: transport.NewChain(transport.RequestID(), transport.Bearer(consoleTokenSource{c})).Then(base),
	}

	c.auth = b.auth
	if c.auth == nil {
		// The sessions endpoint never receives a bearer token.
		signInClient := transport.NewChain(transport.RequestID()).Client(base)
		signInClient.Timeout = cfg.API.Timeout
		client, err := authapi.New(cfg.API.BaseURL,
			authapi.WithSessionsPath(cfg.API.SessionsPath),
			authapi.WithHTTPClient(signInClient),
		)
		if err != nil {
			c.closeRedis()
			return nil, err
		}
		c.auth = client
	}

	if cfg.API.GraphQLURL != "" {
		c.graphql = graphql.New(cfg.API.GraphQLURL, c.httpClient)
	}

	c.audit = newAuditDispatcher(cfg.Audit, b.auditSink, c.logger)

	b.built = true
	return c, nil
}

func (b *Builder) buildStore(cfg Config) (credential.Store, redis.UniversalClient, error) {
	if b.store != nil {
		return b.store, nil, nil
	}

	cc := cfg.Credentials
	switch cc.Backend {
	case BackendMemory:
		return credential.NewMemoryStore(cc.TTL, b.now), nil, nil

	case BackendFile:
		opts := []credential.FileOption{credential.WithFileClock(b.now)}
		if cc.EncryptionKey != "" {
			sealer, err := credential.NewXChaCha20SealerFromBase64(cc.EncryptionKey)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, credential.WithSealer(sealer))
		}
		store, err := credential.NewFileStore(cc.Dir, cc.Profile, cc.TTL, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("credential file store: %w", err)
		}
		return store, nil, nil

	case BackendRedis:
		if b.redis != nil {
			return credential.NewRedisStore(b.redis, cc.RedisPrefix, cc.TTL), nil, nil
		}
		if cc.RedisAddr == "" {
			return nil, nil, errors.New("redis backend requires WithRedis or credentials.redis_addr")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cc.RedisAddr,
			Password: cc.RedisPassword,
			DB:       cc.RedisDB,
		})
		return credential.NewRedisStore(client, cc.RedisPrefix, cc.TTL), client, nil
	}

	return nil, nil, fmt.Errorf("unsupported credential backend %q", cc.Backend)
}
