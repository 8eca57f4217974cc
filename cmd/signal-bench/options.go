package main

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Options bench parameters
type Options struct {
	Listeners  int
	Producers  int
	Emits      int
	BreakEvery int
	ConfigDir   string
	ConfigFiles []string
	EnvPrefix   string
}

// configSections 环境变量可以覆盖的配置段
var configSections = []string{"logger", "telemetry", "signal"}

// DefaultOptions returns the flag defaults
func DefaultOptions() Options {
	return Options{
		Listeners: 8,
		Producers: 4,
		Emits:     1000,
		ConfigDir: "./configs",
		EnvPrefix: "SIGNAL",
	}
}

// Validate implements config.Validator
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Listeners, validation.Required, validation.Min(1)),
		validation.Field(&o.Producers, validation.Required, validation.Min(1), validation.Max(1024)),
		validation.Field(&o.Emits, validation.Required, validation.Min(1)),
		validation.Field(&o.BreakEvery, validation.Min(0)),
		validation.Field(&o.ConfigFiles, validation.Each(validation.Required)),
	)
}
