package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// AssessmentYAMLConfig mirrors the on-disk shape of assessment.yaml. Every
// section is optional; whatever the operator omits falls back to the
// built-in default for that section via mergo.Merge(..., mergo.WithOverride).
type AssessmentYAMLConfig struct {
	Session   *SessionConfig   `yaml:"session"`
	Queue     *QueueConfig     `yaml:"queue"`
	Scoring   *ScoringConfig   `yaml:"scoring"`
	Generator *GeneratorConfig `yaml:"generator"`
	Evaluator *EvaluatorConfig `yaml:"evaluator"`
	RAG       *RAGConfig       `yaml:"rag"`
	Retention *RetentionConfig `yaml:"retention"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load assessment.yaml from configDir, if present
//  2. Expand environment variables
//  3. Merge built-in defaults + user-defined overrides per section
//  4. Validate all configuration
//  5. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.InfoContext(ctx, "Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.InfoContext(ctx, "Configuration initialized successfully",
		"queue_mode", stats.QueueMode,
		"queue_workers", stats.QueueWorkerCount,
		"session_time_limit_seconds", stats.SessionTimeLimit,
		"scoring_concurrency", stats.ScoringConcurrency)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	userCfg, err := loader.loadAssessmentYAML()
	if err != nil {
		return nil, NewLoadError("assessment.yaml", err)
	}

	session := DefaultSessionConfig()
	queue := DefaultQueueConfig()
	scoring := DefaultScoringConfig()
	generator := DefaultGeneratorConfig()
	evaluator := DefaultEvaluatorConfig()
	rag := DefaultRAGConfig()
	retention := DefaultRetentionConfig()

	if userCfg.Session != nil {
		if err := mergo.Merge(session, userCfg.Session, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge session config: %w", err)
		}
	}
	if userCfg.Queue != nil {
		if err := mergo.Merge(queue, userCfg.Queue, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge queue config: %w", err)
		}
	}
	if userCfg.Scoring != nil {
		if err := mergo.Merge(scoring, userCfg.Scoring, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge scoring config: %w", err)
		}
	}
	if userCfg.Generator != nil {
		if err := mergo.Merge(generator, userCfg.Generator, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge generator config: %w", err)
		}
	}
	if userCfg.Evaluator != nil {
		if err := mergo.Merge(evaluator, userCfg.Evaluator, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge evaluator config: %w", err)
		}
	}
	if userCfg.RAG != nil {
		if err := mergo.Merge(rag, userCfg.RAG, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge rag config: %w", err)
		}
	}
	if userCfg.Retention != nil {
		if err := mergo.Merge(retention, userCfg.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	return &Config{
		configDir: configDir,
		Session:   session,
		Queue:     queue,
		Scoring:   scoring,
		Generator: generator,
		Evaluator: evaluator,
		RAG:       rag,
		Retention: retention,
	}, nil
}

// validate performs cross-field checks that mergo.Merge cannot express.
func validate(cfg *Config) error {
	if !cfg.Queue.Mode.IsValid() {
		return NewValidationError("queue", "mode", "mode", fmt.Errorf("%w: %q", ErrInvalidValue, cfg.Queue.Mode))
	}
	if cfg.Queue.WorkerCount < 1 {
		return NewValidationError("queue", "worker_count", "worker_count", ErrMissingRequiredField)
	}
	if cfg.Queue.Mode == QueueModeBroker && cfg.Queue.NATSURL == "" {
		return NewValidationError("queue", "nats_url", "nats_url", ErrMissingRequiredField)
	}
	if cfg.Session.DefaultTimeLimitSeconds < 1 {
		return NewValidationError("session", "default_time_limit_seconds", "default_time_limit_seconds", ErrMissingRequiredField)
	}
	if cfg.Session.AccessCodeLength < 6 {
		return NewValidationError("session", "access_code_length", "access_code_length", fmt.Errorf("%w: must be at least 6", ErrInvalidValue))
	}
	if cfg.Scoring.MaxConcurrentPerSubmission < 1 {
		return NewValidationError("scoring", "max_concurrent_per_submission", "max_concurrent_per_submission", ErrMissingRequiredField)
	}
	if cfg.Generator.ServiceAddr == "" {
		return NewValidationError("generator", "service_addr", "service_addr", ErrMissingRequiredField)
	}
	if cfg.Evaluator.ServiceAddr == "" {
		return NewValidationError("evaluator", "service_addr", "service_addr", ErrMissingRequiredField)
	}
	if len(cfg.Evaluator.AllowedLanguages) == 0 {
		return NewValidationError("evaluator", "allowed_languages", "allowed_languages", ErrMissingRequiredField)
	}
	if cfg.RAG.TopK < 1 {
		return NewValidationError("rag", "top_k", "top_k", ErrMissingRequiredField)
	}
	return nil
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variable references before parsing so that
	// secrets (DB passwords, generator API keys) never need to be
	// committed to the YAML file itself.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

// loadAssessmentYAML reads configDir/assessment.yaml. A missing file is not
// an error: it yields a zero-value config, leaving every section at its
// built-in default.
func (l *configLoader) loadAssessmentYAML() (*AssessmentYAMLConfig, error) {
	var cfg AssessmentYAMLConfig

	if err := l.loadYAML("assessment.yaml", &cfg); err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return &cfg, nil
		}
		return nil, err
	}

	return &cfg, nil
}
