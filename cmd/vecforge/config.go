package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes one index build job.
type Config struct {
	// IndexName is the logical index the build belongs to. Used for upload
	// object names and commit records.
	IndexName string `yaml:"index_name"`

	// DType selects the index family: "float" or "binary".
	DType string `yaml:"dtype"`

	// Dim is the vector dimensionality (float) or code size in bytes
	// (binary).
	Dim int `yaml:"dim"`

	// GraphDegree is the fixed out-degree of the device-built graph.
	GraphDegree int `yaml:"graph_degree"`

	// Build holds the CPU index parameters.
	Build BuildConfig `yaml:"build"`

	// Vectors is the path to the raw vector file: little-endian float32
	// records of Dim values each, or Dim-byte codes for the binary family.
	Vectors string `yaml:"vectors"`

	// IDs is an optional path to a file with one decimal int64 per line,
	// in vector order. When empty, IDs are assigned sequentially from 0.
	IDs string `yaml:"ids"`

	// Output is the destination path for the serialized index.
	Output string `yaml:"output"`

	// Compression selects the payload codec: "none", "lz4" or "zstd".
	Compression string `yaml:"compression"`

	// Upload configures the optional object-store upload.
	Upload UploadConfig `yaml:"upload"`
}

// BuildConfig mirrors the build parameter map accepted by the library.
type BuildConfig struct {
	EFSearch       *int  `yaml:"ef_search"`
	EFConstruction *int  `yaml:"ef_construction"`
	BaseLevelOnly  *bool `yaml:"base_level_only"`
}

// UploadConfig configures where the produced file is pushed.
type UploadConfig struct {
	// Backend is "s3", "minio", "local" or empty to skip upload.
	Backend string `yaml:"backend"`

	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`

	// Region applies to the s3 backend.
	Region string `yaml:"region"`

	// Endpoint, AccessKey and SecretKey apply to the minio backend.
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Dir applies to the local backend.
	Dir string `yaml:"dir"`

	// CommitTable is an optional DynamoDB table for commit records
	// (s3 backend only).
	CommitTable string `yaml:"commit_table"`

	// RateLimitBytes caps upload throughput in bytes per second.
	RateLimitBytes int64 `yaml:"rate_limit_bytes"`

	// Concurrency bounds parallel file uploads.
	Concurrency int `yaml:"concurrency"`
}

// LoadConfig reads and validates a build config from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for required fields.
func (c *Config) Validate() error {
	if c.Vectors == "" {
		return fmt.Errorf("config: vectors path is required")
	}
	if c.Output == "" {
		return fmt.Errorf("config: output path is required")
	}
	if c.Dim <= 0 {
		return fmt.Errorf("config: dim must be positive, got %d", c.Dim)
	}
	switch c.Upload.Backend {
	case "", "local", "s3", "minio":
	default:
		return fmt.Errorf("config: unknown upload backend %q", c.Upload.Backend)
	}
	return nil
}

// ParamMap converts the build section to the parameter map the library
// accepts. Unset fields are omitted so library defaults apply.
func (c *Config) ParamMap() map[string]any {
	params := make(map[string]any)
	if c.DType != "" {
		params["vector_dtype"] = c.DType
	}
	if c.Build.EFSearch != nil {
		params["ef_search"] = *c.Build.EFSearch
	}
	if c.Build.EFConstruction != nil {
		params["ef_construction"] = *c.Build.EFConstruction
	}
	if c.Build.BaseLevelOnly != nil {
		params["base_level_only"] = *c.Build.BaseLevelOnly
	}
	return params
}
