// Package config loads pool settings for slotpool-backed services.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coachpo/slotpool/errs"
)

// PoolSpec describes one pool's construction parameters.
type PoolSpec struct {
	Name        string        `yaml:"name"`
	Capacity    int           `yaml:"capacity"`
	WaitTimeout time.Duration `yaml:"waitTimeout"`
}

// Settings is the configuration tree for a set of pools.
type Settings struct {
	Pools []PoolSpec `yaml:"pools"`
}

// Parse decodes and validates a YAML settings document.
func Parse(data []byte) (Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, errs.New("config", errs.CodeInvalidConfig,
			errs.WithMessage("parse yaml"), errs.WithCause(err))
	}
	if err := settings.validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Load reads and parses the settings file at path.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Spec returns the pool spec with the given name.
func (s Settings) Spec(name string) (PoolSpec, bool) {
	for _, spec := range s.Pools {
		if spec.Name == name {
			return spec, true
		}
	}
	return PoolSpec{}, false
}

func (s Settings) validate() error {
	seen := make(map[string]struct{}, len(s.Pools))
	for i, spec := range s.Pools {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errs.New(fmt.Sprintf("pools[%d]", i), errs.CodeInvalidConfig,
				errs.WithMessage("name must be non-empty"))
		}
		if _, dup := seen[name]; dup {
			return errs.New(name, errs.CodeInvalidConfig, errs.WithMessage("duplicate pool name"))
		}
		seen[name] = struct{}{}
		if spec.Capacity < 1 {
			return errs.New(name, errs.CodeInvalidConfig,
				errs.WithMessage(fmt.Sprintf("capacity must be positive, got %d", spec.Capacity)))
		}
		if spec.WaitTimeout < 0 {
			return errs.New(name, errs.CodeInvalidConfig,
				errs.WithMessage(fmt.Sprintf("wait timeout must not be negative, got %s", spec.WaitTimeout)))
		}
	}
	return nil
}
