package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/cbgtariff/internal/model"
)

// Reference modes.
const (
	ModeSnapshot = "snapshot" // in-memory snapshot from Parquet files
	ModePostgres = "postgres" // in-memory snapshot loaded from the ref schema
	ModeDirect   = "direct"   // every lookup queries Postgres
)

// Config holds all runtime configuration for a cbgtariff run.
type Config struct {
	DSN              string
	LogFormat        string // "text" or "json"
	LogLevel         string
	ConfigPath       string
	StatementTimeout string

	// Reference data source for resolve, batch and serve.
	ReferenceMode string
	ReferenceDir  string

	// Resolver tuning.
	MinDiagnosisCases int64

	// serve
	ListenAddr string

	// batch
	Workers    int
	InPath     string
	OutPath    string
	NoProgress bool

	// ingest / plan: Parquet source per reference table name.
	Files map[string]string
	Force bool
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	Reference struct {
		Mode string `yaml:"mode"`
		Dir  string `yaml:"dir"`
	} `yaml:"reference"`
	Resolver struct {
		MinDiagnosisCases int64 `yaml:"min_diagnosis_cases"`
	} `yaml:"resolver"`
	Batch struct {
		Workers int `yaml:"workers"`
	} `yaml:"batch"`
	Files map[string]string `yaml:"files"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{
		LogFormat:         "text",
		LogLevel:          "info",
		StatementTimeout:  "30s",
		ReferenceMode:     ModeSnapshot,
		MinDiagnosisCases: 1,
		ListenAddr:        ":8080",
		Workers:           4,
		Files:             make(map[string]string),
	}
}

// LoadFromFile reads a YAML config file and merges its non-empty values
// into Config. Values set explicitly on the command line should be applied
// after this call.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if yc.Server.ListenAddr != "" {
		c.ListenAddr = yc.Server.ListenAddr
	}
	if yc.Reference.Mode != "" {
		c.ReferenceMode = yc.Reference.Mode
	}
	if yc.Reference.Dir != "" {
		c.ReferenceDir = yc.Reference.Dir
	}
	if yc.Resolver.MinDiagnosisCases != 0 {
		c.MinDiagnosisCases = yc.Resolver.MinDiagnosisCases
	}
	if yc.Batch.Workers != 0 {
		c.Workers = yc.Batch.Workers
	}
	if c.Files == nil {
		c.Files = make(map[string]string)
	}
	for name, path := range yc.Files {
		if _, ok := model.RefTableByName(name); !ok {
			return fmt.Errorf("unknown reference table %q in config", name)
		}
		c.Files[name] = path
	}
	return c.validateReference()
}

func (c *Config) validateReference() error {
	switch c.ReferenceMode {
	case ModeSnapshot, ModePostgres, ModeDirect:
	default:
		return fmt.Errorf("unknown reference mode %q (want %s, %s or %s)",
			c.ReferenceMode, ModeSnapshot, ModePostgres, ModeDirect)
	}
	if c.MinDiagnosisCases < 1 {
		return fmt.Errorf("min_diagnosis_cases must be at least 1, got %d", c.MinDiagnosisCases)
	}
	return nil
}

// ValidateReference checks that the configured reference source is usable.
func (c *Config) ValidateReference() error {
	if err := c.validateReference(); err != nil {
		return err
	}
	if c.ReferenceMode == ModeSnapshot {
		if c.ReferenceDir == "" {
			return fmt.Errorf("--reference-dir is required in %s mode", ModeSnapshot)
		}
		if _, err := os.Stat(c.ReferenceDir); err != nil {
			return fmt.Errorf("reference dir not accessible: %w", err)
		}
		return nil
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or CBG_DB_URL is required in %s mode", c.ReferenceMode)
	}
	return nil
}

// ValidateFiles checks that at least one reference file is given and that
// every given file exists.
func (c *Config) ValidateFiles() error {
	if len(c.Files) == 0 {
		return fmt.Errorf("at least one of --cases, --chapters, --procedures, --tariffs is required")
	}
	for _, t := range model.AllRefTables {
		path, ok := c.Files[t.Name]
		if !ok {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s file not accessible: %w", t.Name, err)
		}
	}
	return nil
}

// ValidateWithDSN checks the files and the DSN.
func (c *Config) ValidateWithDSN() error {
	if err := c.ValidateFiles(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or CBG_DB_URL is required")
	}
	return nil
}

// ValidateBatch checks batch input, output and worker count.
func (c *Config) ValidateBatch() error {
	if c.InPath == "" {
		return fmt.Errorf("--in is required")
	}
	if _, err := os.Stat(c.InPath); err != nil {
		return fmt.Errorf("input not accessible: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1, got %d", c.Workers)
	}
	return c.ValidateReference()
}
