package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipherd/clipherd/pkg/clipherd"
	"github.com/clipherd/clipherd/pkg/clipherd/repo/memory"
	repopg "github.com/clipherd/clipherd/pkg/clipherd/repo/postgres"
	fsstorage "github.com/clipherd/clipherd/pkg/clipherd/storage/fs"
	memorystorage "github.com/clipherd/clipherd/pkg/clipherd/storage/memory"
	s3storage "github.com/clipherd/clipherd/pkg/clipherd/storage/s3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of
// library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		StorageType:  "memory",

		PostingInterval:   150 * time.Minute,
		JitterFraction:    0.2,
		QueueLowThreshold: 2,
		RejectedLifespan:  24 * time.Hour,
		MaxHammingDist:    clipherd.DefaultMaxHammingDistance,

		Heartbeat:         15 * time.Second,
		DiscoveryInterval: 0,
		SweepSpec:         clipherd.DefaultSweepSpec,
	}
}

// ServerConfig represents server configuration for the clipherd service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Storage configuration
	StorageType     string // "memory", "fs", "s3"
	FSBaseDir       string
	FSURLPrefix     string
	S3Region        string
	S3Bucket        string
	S3AccessKeyID   string
	S3SecretKey     string
	S3Endpoint      string
	S3UsePathStyle  bool
	PresignDuration int

	// Default account settings applied at registration when a field is unset
	PostingInterval   time.Duration
	JitterFraction    float64
	QueueLowThreshold int
	RejectedLifespan  time.Duration
	MaxHammingDist    int

	// Engine tuning
	Heartbeat         time.Duration
	DiscoveryInterval time.Duration
	SweepSpec         string
}

// Validate validates the server configuration. Scheduler parameters are
// checked here so a misconfigured deployment fails at startup instead of
// inside a supervisor.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageType {
	case "memory":
	case "fs":
		if c.FSBaseDir == "" {
			return errors.New("fs base dir is required when using fs storage")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	if c.PostingInterval <= 0 {
		return errors.New("posting interval must be positive")
	}
	if c.JitterFraction < 0 || c.JitterFraction >= 1 {
		return errors.New("jitter fraction must be in [0, 1)")
	}
	if c.QueueLowThreshold < 0 {
		return errors.New("queue low threshold must not be negative")
	}
	if c.MaxHammingDist < 0 {
		return errors.New("max hamming distance must not be negative")
	}

	return nil
}

// Collaborators are the platform-facing dependencies the config layer cannot
// construct on its own: how to scrape sources, publish posts, and fingerprint
// video frames.
type Collaborators struct {
	Scraper clipherd.Scraper
	Poster  clipherd.Poster
	Frames  clipherd.FrameExtractor
	Hasher  clipherd.PerceptualHasher
	Sink    clipherd.EventSink
	Logger  *slog.Logger
}

// BuildService creates a Service instance from the server configuration and
// the supplied collaborators.
func (c *ServerConfig) BuildService(collab Collaborators) (clipherd.Service, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	store, err := c.buildStorageBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to build storage backend: %w", err)
	}

	options := []clipherd.Option{
		clipherd.WithRepository(repo),
		clipherd.WithBlobStore(store),
		clipherd.WithScraper(collab.Scraper),
		clipherd.WithPoster(collab.Poster),
		clipherd.WithFrameExtractor(collab.Frames),
		clipherd.WithPerceptualHasher(collab.Hasher),
		clipherd.WithHeartbeat(c.Heartbeat),
		clipherd.WithSweepSpec(c.SweepSpec),
		clipherd.WithDuplicateDistance(c.MaxHammingDist),
		clipherd.WithDefaultSettings(clipherd.AccountSettings{
			PostingInterval:    c.PostingInterval,
			JitterFraction:     c.JitterFraction,
			QueueLowThreshold:  c.QueueLowThreshold,
			RejectedLifespan:   c.RejectedLifespan,
			MaxHammingDistance: c.MaxHammingDist,
		}),
	}

	if collab.Sink != nil {
		options = append(options, clipherd.WithEventSink(collab.Sink))
	}
	if collab.Logger != nil {
		options = append(options, clipherd.WithLogger(collab.Logger))
	}
	if c.DiscoveryInterval > 0 {
		options = append(options, clipherd.WithDiscoveryInterval(c.DiscoveryInterval))
	}

	return clipherd.New(options...)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (clipherd.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// buildStorageBackend creates a BlobStore based on the configuration
func (c *ServerConfig) buildStorageBackend() (clipherd.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		return memorystorage.New(), nil

	case "fs":
		return fsstorage.New(fsstorage.Config{
			BaseDir:   c.FSBaseDir,
			URLPrefix: c.FSURLPrefix,
		})

	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.S3Region,
			Bucket:          c.S3Bucket,
			AccessKeyID:     c.S3AccessKeyID,
			SecretAccessKey: c.S3SecretKey,
			Endpoint:        c.S3Endpoint,
			UsePathStyle:    c.S3UsePathStyle,
			PresignDuration: c.PresignDuration,
		})

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}
}

// PingPostgres verifies connectivity to Postgres. It is used by deployments
// that want a fail-fast startup check before serving traffic.
func PingPostgres(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
