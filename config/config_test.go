package config

import "testing"

func TestProductionModeDefaultsOff(t *testing.T) {
	cfg := &Config{}
	applyEnvOverrides(cfg)
	if cfg.ServerConfig.ProductionMode {
		t.Error("production mode must default to off")
	}
}

func TestProductionModeEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PRODUCTION_MODE", "true")
	cfg := &Config{}
	applyEnvOverrides(cfg)
	if !cfg.ServerConfig.ProductionMode {
		t.Error("SERVER_PRODUCTION_MODE=true must enable production mode")
	}
}

func TestProductionModeFileValueSurvivesWithoutEnv(t *testing.T) {
	cfg := &Config{ServerConfig: ServerConfig{ProductionMode: true}}
	applyEnvOverrides(cfg)
	if !cfg.ServerConfig.ProductionMode {
		t.Error("file-configured production mode must survive env overrides")
	}
}
