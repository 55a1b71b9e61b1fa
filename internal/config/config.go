package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gigsnearme/tablesetup/internal/provision"
	"github.com/gigsnearme/tablesetup/internal/rewrite"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

const (
	DefaultRegion = "us-east-1"
	DefaultFile   = "config.yml"
)

type WaitConfig struct {
	Timeout         time.Duration `yaml:"timeout" envconfig:"WAIT_TIMEOUT"`
	PollInterval    time.Duration `yaml:"poll_interval" envconfig:"WAIT_POLL_INTERVAL"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval" envconfig:"WAIT_MAX_POLL_INTERVAL"`
}

// WarmThroughput is the minimum throughput hint sent with CreateTable.
type WarmThroughput struct {
	ReadUnitsPerSecond  int64 `yaml:"read_units_per_second"`
	WriteUnitsPerSecond int64 `yaml:"write_units_per_second"`
}

type RewriteConfig struct {
	Files       []string       `yaml:"files" ignored:"true"`
	Rules       []rewrite.Rule `yaml:"rules" ignored:"true"`
	FailOnError bool           `yaml:"fail_on_error" envconfig:"REWRITE_FAIL_ON_ERROR"`
}

type Config struct {
	Region   string `yaml:"region" envconfig:"AWS_REGION"`
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	Database struct {
		Endpoint string `yaml:"endpoint" envconfig:"DYNAMODB_ENDPOINT"`
	} `yaml:"database"`

	Tables         []provision.Table `yaml:"tables" ignored:"true"`
	WarmThroughput WarmThroughput    `yaml:"warm_throughput" ignored:"true"`
	Wait           WaitConfig        `yaml:"wait"`
	Rewrite        RewriteConfig     `yaml:"rewrite"`
}

// Default returns the configuration of the document table migration.
func Default() *Config {
	opts := provision.DefaultOptions()
	cfg := &Config{
		Region:   DefaultRegion,
		LogLevel: "info",
		Tables: []provision.Table{
			provision.DocTable("hcltech-doc-extraction", map[string]string{"project": "hcl-idp", "purpose": "doc-extraction"}),
			provision.DocTable("hcltech-doc-dashboard", map[string]string{"project": "hcl-idp", "purpose": "doc-dashboard"}),
		},
		WarmThroughput: WarmThroughput{
			ReadUnitsPerSecond:  opts.ReadUnitsPerSecond,
			WriteUnitsPerSecond: opts.WriteUnitsPerSecond,
		},
		Wait: WaitConfig{
			Timeout:         opts.WaitTimeout,
			PollInterval:    opts.PollInterval,
			MaxPollInterval: opts.MaxPollInterval,
		},
		Rewrite: RewriteConfig{
			Files: []string{
				"agent1_docextraction_agent.py",
				"agent2_docclassification_agent.py",
				"agent3_doc_entity_extraction.py",
				"orchestrator.py",
				"orchestrator-agent.py",
			},
			Rules: []rewrite.Rule{
				{Old: "nmm-doc-extraction", New: "hcltech-doc-extraction"},
				{Old: "nmm-doc-dashboard", New: "hcltech-doc-dashboard"},
				{Old: "nmm-dashboard", New: "hcltech-doc-dashboard"},
			},
		},
	}
	return cfg
}

// envKeys are the variables read by Load. Exported-but-empty ones count as unset.
var envKeys = []string{
	"AWS_REGION",
	"LOG_LEVEL",
	"DYNAMODB_ENDPOINT",
	"WAIT_TIMEOUT",
	"WAIT_POLL_INTERVAL",
	"WAIT_MAX_POLL_INTERVAL",
	"REWRITE_FAIL_ON_ERROR",
}

// Load builds the configuration from defaults, then the YAML file at path if it
// exists, then the environment. A missing file is not an error. Load does not
// validate: each binary checks only the sections it uses, after its own flags
// are applied, with Validate or ValidateRewrite.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := readFile(path, cfg); err != nil {
			return nil, err
		}
	}

	for _, k := range envKeys {
		if v, ok := os.LookupEnv(k); ok && v == "" {
			os.Unsetenv(k)
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}

	// string is the only key type, so it may be left out of the file
	for i := range cfg.Tables {
		if cfg.Tables[i].PartitionKeyType == "" {
			cfg.Tables[i].PartitionKeyType = provision.KeyTypeString
		}
	}
	return nil
}

// Validate checks the settings used by the table provisioner.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("region is empty")
	}
	if len(c.Tables) == 0 {
		return errors.New("no tables configured")
	}
	seen := make(map[string]struct{}, len(c.Tables))
	for _, t := range c.Tables {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("table %q configured twice", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	if c.Wait.Timeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", c.Wait.Timeout)
	}
	if c.WarmThroughput.ReadUnitsPerSecond < 0 || c.WarmThroughput.WriteUnitsPerSecond < 0 {
		return errors.New("warm throughput must not be negative")
	}
	return nil
}

// ValidateRewrite checks the settings used by the identifier rewriter.
func (c *Config) ValidateRewrite() error {
	if err := rewrite.ValidateRules(c.Rewrite.Rules); err != nil {
		return fmt.Errorf("rewrite rules: %w", err)
	}
	return nil
}

func (c *Config) ProvisionOptions() provision.Options {
	return provision.Options{
		WaitTimeout:         c.Wait.Timeout,
		PollInterval:        c.Wait.PollInterval,
		MaxPollInterval:     c.Wait.MaxPollInterval,
		ReadUnitsPerSecond:  c.WarmThroughput.ReadUnitsPerSecond,
		WriteUnitsPerSecond: c.WarmThroughput.WriteUnitsPerSecond,
	}
}
