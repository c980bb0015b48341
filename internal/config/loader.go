package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Audiogen
	if cfg.Audiogen.Timeout < 0 {
		errs = append(errs, fmt.Errorf("audiogen.timeout %s must not be negative", cfg.Audiogen.Timeout))
	}
	if cfg.Audiogen.BaseURL == "" {
		slog.Warn("audiogen.base_url is empty; playback will use local speech synthesis only")
	}

	// Recognizer
	if cfg.Recognizer.RestartDelay < 0 {
		errs = append(errs, fmt.Errorf("recognizer.restart_delay %s must not be negative", cfg.Recognizer.RestartDelay))
	}

	// Personas
	idsSeen := make(map[string]int, len(cfg.Personas))
	for i, p := range cfg.Personas {
		prefix := fmt.Sprintf("personas[%d]", i)
		if p.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else {
			if prev, ok := idsSeen[p.ID]; ok {
				errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of personas[%d]", prefix, p.ID, prev))
			}
			idsSeen[p.ID] = i
		}
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if p.Weight < 0 {
			errs = append(errs, fmt.Errorf("%s.weight %.2f must not be negative", prefix, p.Weight))
		}
		for j, cluster := range p.Clusters {
			if len(cluster) == 0 {
				errs = append(errs, fmt.Errorf("%s.clusters[%d] must contain at least one keyword", prefix, j))
			}
			for k, kw := range cluster {
				if kw == "" {
					errs = append(errs, fmt.Errorf("%s.clusters[%d][%d] must not be empty", prefix, j, k))
				}
			}
		}
		if p.Weight > 0 && len(p.Clusters) == 0 {
			slog.Warn("persona has a suggestion weight but no keyword clusters; it will never be suggested",
				"persona", p.ID,
			)
		}
	}

	return errors.Join(errs...)
}
