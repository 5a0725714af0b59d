// Package config loads and validates the engine configuration from a YAML
// document with environment-variable overrides. It provides typed structs for
// every subsystem (databases, overlap tuning, annotation backends, Server,
// Postgres, Kafka, Redis, Logging, Metrics, Worker).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
)

// EnvPrefix is the prefix of every environment override, e.g.
// SVANNOT_LOGGING_LEVEL or SVANNOT_DATABASES_RELEASE.
const EnvPrefix = "SVANNOT"

// Config is the top-level configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Annotation AnnotationConfig `yaml:"annotation"`
	Databases  DatabasesConfig  `yaml:"databases"`
	Overlap    OverlapConfig    `yaml:"overlap"`
	Worker     WorkerConfig     `yaml:"worker"`
}

// ServerConfig holds HTTP server settings of the REST shell.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// PostgresConfig holds connection parameters of the annotation database.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode" split_words:"true"`
	MaxOpenConns    int           `yaml:"maxOpenConns" split_words:"true"`
	MaxIdleConns    int           `yaml:"maxIdleConns" split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" split_words:"true"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and annotation caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize" split_words:"true"`
	CacheTTL time.Duration `yaml:"cacheTTL" envconfig:"CACHE_TTL"`
}

// KafkaConfig holds Kafka broker and topic settings of the streaming worker.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup" split_words:"true"`
	Topics        KafkaTopics `yaml:"topics"`
	// Compression of published verdicts: none, gzip, snappy, lz4 or zstd.
	Compression string `yaml:"compression"`
	// HandleAttempts bounds how often one candidate is retried before it is
	// skipped.
	HandleAttempts int `yaml:"handleAttempts" split_words:"true"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Candidates string `yaml:"candidates"`
	Verdicts   string `yaml:"verdicts"`
}

// AnnotationConfig selects the annotation lookup backend and its
// fault-tolerance knobs.
type AnnotationConfig struct {
	// Backend is "none" or "postgres".
	Backend          string        `yaml:"backend"`
	// GeneModel ("refseq" or "ensembl") fills genes of structural variants.
	GeneModel        string        `yaml:"geneModel" split_words:"true"`
	CacheEnabled     bool          `yaml:"cacheEnabled" split_words:"true"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"maxAttempts" split_words:"true"`
	FailureThreshold int           `yaml:"failureThreshold" split_words:"true"`
	ResetTimeout     time.Duration `yaml:"resetTimeout" split_words:"true"`
}

// DatabasesConfig points at the binary database snapshots of every genome
// release.
type DatabasesConfig struct {
	// Release selects one entry of Releases ("grch37" or "grch38").
	Release string `yaml:"release"`
	// Dir is prepended to relative database paths.
	Dir             string                  `yaml:"dir"`
	Releases        map[string]ReleasePaths `yaml:"releases" ignored:"true"`
	ExtraContigs    []string                `yaml:"extraContigs" split_words:"true"`
	VerifyChecksums bool                    `yaml:"verifyChecksums" split_words:"true"`
}

// ReleasePaths lists the database files of one genome release.
type ReleasePaths struct {
	Background BackgroundPaths `yaml:"background"`
	Pathogenic string          `yaml:"pathogenic"`
	Tads       TadPaths        `yaml:"tads"`
	ClinvarSv  string          `yaml:"clinvarSv"`
	Genes      GenePaths       `yaml:"genes"`
	// Manifest is the optional checksum manifest of the files above.
	Manifest string `yaml:"manifest"`
}

// BackgroundPaths lists one file per population background source.
type BackgroundPaths struct {
	GnomadSv string `yaml:"gnomadSv"`
	Dbvar    string `yaml:"dbvar"`
	Dgv      string `yaml:"dgv"`
	DgvGs    string `yaml:"dgvGs"`
	Exac     string `yaml:"exac"`
	G1k      string `yaml:"g1k"`
}

// TadPaths lists the cell-type specific TAD sets.
type TadPaths struct {
	Hesc  string `yaml:"hesc"`
	Imr90 string `yaml:"imr90"`
}

// GenePaths lists the gene models and the gene identifier cross-reference.
type GenePaths struct {
	Refseq  string `yaml:"refseq"`
	Ensembl string `yaml:"ensembl"`
	Xlink   string `yaml:"xlink"`
}

// OverlapConfig holds the slack windows used for breakends and insertions.
type OverlapConfig struct {
	BreakendSlack  int `yaml:"breakendSlack" split_words:"true"`
	InsertionSlack int `yaml:"insertionSlack" split_words:"true"`
}

// WorkerConfig controls batch evaluation parallelism.
type WorkerConfig struct {
	Concurrency int `yaml:"concurrency"`
	ChunkSize   int `yaml:"chunkSize" split_words:"true"`
}

var knownReleases = map[string]struct{}{"grch37": {}, "grch38": {}}

// Load reads the YAML config file, applies environment-variable overrides and
// validates the result. A missing path, an unreadable or malformed file and a
// failed validation are all configuration errors.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no config file given", apperrors.ErrConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file %s: %v", apperrors.ErrConfig, path, err)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config file %s: %v", apperrors.ErrConfig, path, err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("%w: applying environment overrides: %v", apperrors.ErrConfig, err)
	}
	if cfg.Databases.Dir == "" {
		cfg.Databases.Dir = filepath.Dir(path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the engine cannot start without.
func (c *Config) Validate() error {
	if _, err := c.Databases.Selected(); err != nil {
		return err
	}
	if c.Overlap.BreakendSlack < 0 || c.Overlap.InsertionSlack < 0 {
		return fmt.Errorf("%w: overlap slack must not be negative", apperrors.ErrConfig)
	}
	switch c.Annotation.Backend {
	case "", "none", "postgres":
	default:
		return fmt.Errorf("%w: unknown annotation backend %q", apperrors.ErrConfig, c.Annotation.Backend)
	}
	switch strings.ToLower(c.Annotation.GeneModel) {
	case "refseq", "ensembl":
	default:
		return fmt.Errorf("%w: unknown gene model %q", apperrors.ErrConfig, c.Annotation.GeneModel)
	}
	switch c.Kafka.Compression {
	case "", "none", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("%w: unknown kafka compression %q", apperrors.ErrConfig, c.Kafka.Compression)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("%w: worker concurrency must be positive", apperrors.ErrConfig)
	}
	return nil
}

// Selected returns the resolved database paths of the configured release.
// Every path must be present.
func (d DatabasesConfig) Selected() (ReleasePaths, error) {
	release := strings.ToLower(d.Release)
	if _, ok := knownReleases[release]; !ok {
		return ReleasePaths{}, fmt.Errorf("%w: unknown genome release %q", apperrors.ErrConfig, d.Release)
	}
	paths, ok := d.Releases[release]
	if !ok {
		return ReleasePaths{}, fmt.Errorf("%w: no databases configured for release %s", apperrors.ErrConfig, release)
	}
	paths = paths.resolve(d.Dir)
	for name, p := range paths.Files() {
		if p == "" {
			return ReleasePaths{}, fmt.Errorf("%w: missing path for database %s (release %s)", apperrors.ErrConfig, name, release)
		}
	}
	return paths, nil
}

// Files maps each database name, e.g. "background.dbvar", to its path. The
// manifest is not included.
func (p ReleasePaths) Files() map[string]string {
	return map[string]string{
		"background.gnomadSv": p.Background.GnomadSv,
		"background.dbvar":    p.Background.Dbvar,
		"background.dgv":      p.Background.Dgv,
		"background.dgvGs":    p.Background.DgvGs,
		"background.exac":     p.Background.Exac,
		"background.g1k":      p.Background.G1k,
		"pathogenic":          p.Pathogenic,
		"tads.hesc":           p.Tads.Hesc,
		"tads.imr90":          p.Tads.Imr90,
		"clinvarSv":           p.ClinvarSv,
		"genes.refseq":        p.Genes.Refseq,
		"genes.ensembl":       p.Genes.Ensembl,
		"genes.xlink":         p.Genes.Xlink,
	}
}

func (p ReleasePaths) resolve(dir string) ReleasePaths {
	join := func(s string) string {
		if s == "" || filepath.IsAbs(s) || dir == "" {
			return s
		}
		return filepath.Join(dir, s)
	}
	p.Background = BackgroundPaths{
		GnomadSv: join(p.Background.GnomadSv),
		Dbvar:    join(p.Background.Dbvar),
		Dgv:      join(p.Background.Dgv),
		DgvGs:    join(p.Background.DgvGs),
		Exac:     join(p.Background.Exac),
		G1k:      join(p.Background.G1k),
	}
	p.Pathogenic = join(p.Pathogenic)
	p.Tads = TadPaths{Hesc: join(p.Tads.Hesc), Imr90: join(p.Tads.Imr90)}
	p.ClinvarSv = join(p.ClinvarSv)
	p.Genes = GenePaths{Refseq: join(p.Genes.Refseq), Ensembl: join(p.Genes.Ensembl), Xlink: join(p.Genes.Xlink)}
	p.Manifest = join(p.Manifest)
	return p
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "svannot",
			User:            "svannot",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "svannot-workers",
			Topics: KafkaTopics{
				Candidates: "variant-candidates",
				Verdicts:   "variant-verdicts",
			},
			Compression:    "gzip",
			HandleAttempts: 3,
		},
		Annotation: AnnotationConfig{
			Backend:          "none",
			GeneModel:        "refseq",
			Timeout:          2 * time.Second,
			MaxAttempts:      3,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Databases: DatabasesConfig{
			Release: "grch37",
		},
		Overlap: OverlapConfig{
			BreakendSlack:  50,
			InsertionSlack: 50,
		},
		Worker: WorkerConfig{
			Concurrency: 8,
			ChunkSize:   1024,
		},
	}
}
