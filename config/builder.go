package config

import (
	"os"
	"path/filepath"
)

// 数据源优先级，数值大的覆盖数值小的
const (
	PriorityBaseFile = 10 // <dir>/config.yaml
	PriorityEnvFile  = 20 // <dir>/<env>.yaml
	PriorityOverlay  = 30 // WithFile
	PriorityEnvVars  = 50
)

// LoaderBuilder configuration loader builder
type LoaderBuilder struct {
	configPath string
	env        string
	overlays   []string
	envPrefix  string
	sections   []string
}

// NewLoaderBuilder creates a loader builder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{}
}

// WithConfigPath directory holding config.yaml and <env>.yaml, both optional
func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

// WithEnv overrides the running environment returned by GetEnv
func (b *LoaderBuilder) WithEnv(env string) *LoaderBuilder {
	b.env = env
	return b
}

// WithFile adds a required overlay file; later overlays win over earlier ones
func (b *LoaderBuilder) WithFile(paths ...string) *LoaderBuilder {
	b.overlays = append(b.overlays, paths...)
	return b
}

// WithEnvPrefix enables environment variables named <prefix>_<SECTION>__<KEY>
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithSections limits environment variables to the given top-level sections
func (b *LoaderBuilder) WithSections(sections ...string) *LoaderBuilder {
	b.sections = append(b.sections, sections...)
	return b
}

// Build creates and loads the loader
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), PriorityBaseFile))

		env := b.env
		if env == "" {
			env = GetEnv()
		}
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), PriorityEnvFile))
	}

	// sort.SliceStable 保持 overlay 的添加顺序
	for _, path := range b.overlays {
		loader.AddSource(NewRequiredFileSource(path, PriorityOverlay))
	}

	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, PriorityEnvVars, b.sections...))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv retrieves the running environment (APP_ENV > ENV > dev)
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
