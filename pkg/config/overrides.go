package config

import (
	"context"
	"fmt"
	"os"

	"github.com/heetch/confita"
	"github.com/heetch/confita/backend/file"
)

// OverrideFilename is the per-environment override file looked up next to the
// CDK app, e.g. config.dev.json.
func OverrideFilename(envName string) string {
	return fmt.Sprintf("config.%s.json", envName)
}

// LoadOverrides applies settings from the environment's JSON override file on
// top of cfg. A missing file is not an error: the static table is already a
// complete configuration. The merged config is re-validated so an override
// cannot blank out a required setting.
func LoadOverrides(ctx context.Context, cfg *EnvironmentConfig, filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}
	loader := confita.NewLoader(file.NewBackend(filename))
	if err := loader.Load(ctx, cfg); err != nil {
		return fmt.Errorf("loading overrides from %s: %w", filename, err)
	}
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("overrides from %s: %w", filename, err)
	}
	return nil
}
