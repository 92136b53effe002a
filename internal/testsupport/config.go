package testsupport

import (
	"path/filepath"
	"testing"

	"census/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.API.BaseURL = "http://127.0.0.1:0/metadata"
	cfgVal.API.Concurrency = 4
	cfgVal.API.TimeoutSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBaseURL points the metadata client at url, typically an httptest server.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.API.BaseURL = url
	}
}

// WithCompression sets the harvest stream compression.
func WithCompression(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Harvest.Compression = name
	}
}

// WithHashKinds overrides the harvested hash kinds.
func WithHashKinds(kinds ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Harvest.HashKinds = kinds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ResultsDir)
}
