package config

import (
	"fmt"

	"github.com/samber/do/v2"
)

// ProvideLoaderOptions options for ProvideLoader
type ProvideLoaderOptions struct {
	ConfigPath string   // configuration directory
	Files      []string // required overlay files
	EnvPrefix  string   // environment variable prefix
	Sections   []string // sections environment variables may set; empty allows all
}

// ProvideLoader returns a do provider for *Loader
//
//	do.Provide(injector, config.ProvideLoader(config.ProvideLoaderOptions{
//	    ConfigPath: "./configs",
//	    EnvPrefix:  "SIGNAL",
//	    Sections:   []string{"signal", "telemetry", "logger"},
//	}))
//	loader := do.MustInvoke[*config.Loader](injector)
func ProvideLoader(opts ProvideLoaderOptions) func(do.Injector) (*Loader, error) {
	return func(i do.Injector) (*Loader, error) {
		loader, err := NewLoaderBuilder().
			WithConfigPath(opts.ConfigPath).
			WithFile(opts.Files...).
			WithEnvPrefix(opts.EnvPrefix).
			WithSections(opts.Sections...).
			Build()
		if err != nil {
			return nil, fmt.Errorf("build config loader: %w", err)
		}
		return loader, nil
	}
}
