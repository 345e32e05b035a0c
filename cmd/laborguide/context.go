package main

import (
	"context"

	"github.com/spf13/afero"

	"github.com/danielpatrickdp/laborguide/internal/config"
)

type contextKey string

const (
	ContextKeyFileSystem contextKey = "file_system"
	ContextKeyConfig     contextKey = "config"
)

func getFileSystem(ctx context.Context) afero.Fs {
	if fs, ok := ctx.Value(ContextKeyFileSystem).(afero.Fs); ok {
		return fs
	}
	return afero.NewOsFs()
}

func getConfig(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(ContextKeyConfig).(config.Config); ok {
		return cfg
	}
	return config.Default()
}
