package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"extman/internal/modules/extension/domain"
	"extman/internal/modules/extension/dto"
	extout "extman/internal/modules/extension/port/out"
	"extman/internal/platform/clock"
	"extman/internal/platform/config"
	apperrors "extman/internal/platform/errors"
	"extman/internal/platform/id"
	"extman/internal/platform/slug"
	"extman/internal/platform/tx"
)

type ExtensionService struct {
	store  extout.ConfigStore
	index  extout.IndexProjector
	env    extout.EnvSource
	clock  clock.Clock
	ids    id.Generator
	tx     tx.Manager
	logger hclog.Logger
}

func NewExtensionService(store extout.ConfigStore, index extout.IndexProjector, env extout.EnvSource, clk clock.Clock, ids id.Generator, logger hclog.Logger) *ExtensionService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ExtensionService{store: store, index: index, env: env, clock: clk, ids: ids, tx: &tx.Serial{}, logger: logger}
}

// List returns every configured extension, or the default builtin when
// nothing is configured.
func (s *ExtensionService) List(ctx context.Context) ([]dto.ExtensionInfo, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ExtensionInfo, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toInfo(entry))
	}
	return out, nil
}

func (s *ExtensionService) Get(ctx context.Context, name string) (dto.ExtensionDetail, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return dto.ExtensionDetail{}, err
	}
	entry, _, err := findEntry(entries, name)
	if err != nil {
		return dto.ExtensionDetail{}, err
	}
	raw, err := domain.Marshal(entry.Config)
	if err != nil {
		return dto.ExtensionDetail{}, err
	}
	return dto.ExtensionDetail{Info: toInfo(entry), ConfigJSON: string(raw)}, nil
}

// Add rejects denylisted env overrides outright instead of filtering them,
// so the caller learns which key was refused.
func (s *ExtensionService) Add(ctx context.Context, input dto.AddInput) (dto.ExtensionInfo, error) {
	cfg, err := buildConfig(input)
	if err != nil {
		return dto.ExtensionInfo{}, err
	}
	if err := domain.Validate(cfg); err != nil {
		return dto.ExtensionInfo{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	entry := domain.Entry{Enabled: input.Enabled, Config: cfg}
	err = s.tx.Within(ctx, func(ctx context.Context) error {
		entries, err := s.loadValidated(ctx)
		if err != nil {
			return err
		}
		if _, idx, findErr := findEntry(entries, entry.Key()); findErr == nil {
			if !input.Replace {
				return fmt.Errorf("%w: extension %q (key %s)", apperrors.ErrConflict, domain.Name(cfg), entry.Key())
			}
			entries[idx] = entry
		} else {
			entries = append(entries, entry)
		}
		return s.store.Save(ctx, entries)
	})
	if err != nil {
		return dto.ExtensionInfo{}, err
	}
	s.logger.Info("extension saved", "key", entry.Key(), "type", string(domain.TransportOf(cfg)))
	return toInfo(entry), nil
}

func (s *ExtensionService) Remove(ctx context.Context, name string) error {
	err := s.tx.Within(ctx, func(ctx context.Context) error {
		entries, err := s.loadValidated(ctx)
		if err != nil {
			return err
		}
		_, idx, err := findEntry(entries, name)
		if err != nil {
			return err
		}
		return s.store.Save(ctx, append(entries[:idx], entries[idx+1:]...))
	})
	if err != nil {
		return err
	}
	s.logger.Info("extension removed", "key", slug.Make(name))
	return nil
}

func (s *ExtensionService) SetEnabled(ctx context.Context, name string, enabled bool) error {
	return s.tx.Within(ctx, func(ctx context.Context) error {
		entries, err := s.loadValidated(ctx)
		if err != nil {
			return err
		}
		_, idx, err := findEntry(entries, name)
		if err != nil {
			return err
		}
		entries[idx].Enabled = enabled
		return s.store.Save(ctx, entries)
	})
}

// Plan runs the activation checks for one extension and returns the inputs
// a transport needs to start it.
func (s *ExtensionService) Plan(ctx context.Context, name string) (dto.LaunchPlan, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return dto.LaunchPlan{}, err
	}
	entry, _, err := findEntry(entries, name)
	if err != nil {
		return dto.LaunchPlan{}, err
	}
	if !entry.Enabled {
		return dto.LaunchPlan{}, classify(domain.NewSetupError("extension %q is disabled", domain.Name(entry.Config)))
	}
	plan, err := s.plan(entry)
	if err != nil {
		return dto.LaunchPlan{}, classify(err)
	}
	return toPlanDTO(plan), nil
}

// PlanAll plans every enabled extension concurrently. The first failure
// cancels the remaining work.
func (s *ExtensionService) PlanAll(ctx context.Context) ([]dto.LaunchPlan, error) {
	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]domain.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.Enabled {
			enabled = append(enabled, entry)
		}
	}
	plans := make([]domain.LaunchPlan, len(enabled))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, entry := range enabled {
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = domain.NewTaskJoinError(fmt.Errorf("planning %s panicked: %v", entry.Key(), r))
				}
			}()
			if err := groupCtx.Err(); err != nil {
				return err
			}
			plan, err := s.plan(entry)
			if err != nil {
				return err
			}
			plans[i] = plan
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, classify(err)
	}
	out := make([]dto.LaunchPlan, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toPlanDTO(plan))
	}
	return out, nil
}

// CheckEnv reports which keys the filtering constructor would drop.
func (s *ExtensionService) CheckEnv(_ context.Context, env map[string]string) (dto.EnvCheckResult, error) {
	kept := domain.NewEnvs(env, s.logger)
	result := dto.EnvCheckResult{Allowed: kept.Keys(), Rejected: []string{}}
	for key := range env {
		if _, ok := kept.Get(key); !ok {
			result.Rejected = append(result.Rejected, key)
		}
	}
	sort.Strings(result.Rejected)
	return result, nil
}

func (s *ExtensionService) Denylist(context.Context) []string {
	return domain.DisallowedKeys()
}

func (s *ExtensionService) KeyFor(name string) string {
	return slug.Make(name)
}

func (s *ExtensionService) Reindex(ctx context.Context) (dto.ReindexResult, error) {
	if s.index == nil {
		return dto.ReindexResult{}, fmt.Errorf("extension index is not configured")
	}
	entries, err := s.loadValidated(ctx)
	if err != nil {
		return dto.ReindexResult{}, err
	}
	if err := s.index.Reset(ctx); err != nil {
		return dto.ReindexResult{}, err
	}
	now := s.clock.Now()
	for _, entry := range entries {
		if err := s.index.Upsert(ctx, domain.NewIndexRecord(entry, now)); err != nil {
			return dto.ReindexResult{}, err
		}
	}
	return dto.ReindexResult{Indexed: len(entries)}, nil
}

func (s *ExtensionService) plan(entry domain.Entry) (domain.LaunchPlan, error) {
	cfg := entry.Config
	if err := domain.Validate(cfg); err != nil {
		return domain.LaunchPlan{}, domain.NewSetupError("%v", err)
	}
	plan := domain.LaunchPlan{
		ID:      s.ids.New(),
		Key:     entry.Key(),
		Name:    domain.Name(cfg),
		Kind:    domain.TransportOf(cfg),
		Env:     map[string]string{},
		Summary: domain.Render(cfg),
	}
	if timeout, ok := domain.TimeoutOf(cfg); ok {
		plan.Timeout = timeout
	} else {
		plan.Timeout = defaultTimeout()
	}

	if envs, envKeys, ok := domain.EnvsOf(cfg); ok {
		if err := envs.Validate(); err != nil {
			return domain.LaunchPlan{}, err
		}
		plan.Env = envs.Snapshot()
		for _, key := range envKeys {
			if domain.IsDisallowed(key) {
				return domain.LaunchPlan{}, domain.NewInvalidEnvVarError(key)
			}
			value, found := s.env.Lookup(key)
			if !found {
				return domain.LaunchPlan{}, domain.NewSetupError("environment variable %s required by %s is not set", key, plan.Name)
			}
			plan.Env[key] = value
		}
	}

	switch c := cfg.(type) {
	case *domain.StdioConfig:
		plan.Command = c.Cmd
		plan.Args = append([]string{}, c.Args...)
	case *domain.SSEConfig:
		plan.URI = c.URI
	case *domain.StreamableHTTPConfig:
		plan.URI = c.URI
		plan.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			plan.Headers[k] = v
		}
	case *domain.InlinePythonConfig:
		plan.Command = "uvx"
		plan.Args = []string{"--with", "mcp"}
		for _, dep := range c.Dependencies {
			plan.Args = append(plan.Args, "--with", dep)
		}
		plan.Args = append(plan.Args, "python", "-c", c.Code)
	case *domain.BuiltinConfig, *domain.FrontendConfig:
	}
	s.logger.Debug("extension planned", "key", plan.Key, "type", string(plan.Kind), "env_count", len(plan.Env))
	return plan, nil
}

// entries loads the store and falls back to the default extension.
func (s *ExtensionService) entries(ctx context.Context) ([]domain.Entry, error) {
	entries, err := s.loadValidated(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []domain.Entry{{Enabled: true, Config: domain.Default()}}, nil
	}
	return entries, nil
}

func (s *ExtensionService) loadValidated(ctx context.Context) ([]domain.Entry, error) {
	entries, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[string]string{}
	for _, entry := range entries {
		key := entry.Key()
		if other, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: extensions %q and %q share key %s", apperrors.ErrConflict, other, domain.Name(entry.Config), key)
		}
		seen[key] = domain.Name(entry.Config)
	}
	return entries, nil
}

func findEntry(entries []domain.Entry, name string) (domain.Entry, int, error) {
	key := slug.Make(name)
	for i, entry := range entries {
		if entry.Key() == key {
			return entry, i, nil
		}
	}
	return domain.Entry{}, -1, fmt.Errorf("%w: extension %q", apperrors.ErrNotFound, name)
}

func buildConfig(input dto.AddInput) (domain.Config, error) {
	envs := domain.EnvsFromMap(input.Envs)
	if err := envs.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	}
	for _, key := range input.EnvKeys {
		if domain.IsDisallowed(key) {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, domain.NewInvalidEnvVarError(key))
		}
	}
	timeout := input.Timeout
	if timeout == 0 {
		timeout = config.DefaultExtensionTimeout
	}
	envKeys := append([]string{}, input.EnvKeys...)

	switch domain.TransportKind(strings.ToLower(input.Type)) {
	case domain.TransportStdio:
		cfg := domain.NewStdio(input.Name, input.Cmd, input.Description, timeout)
		cfg.Envs = envs
		cfg.EnvKeys = envKeys
		return domain.WithArgs(cfg, input.Args), nil
	case domain.TransportSSE:
		cfg := domain.NewSSE(input.Name, input.URI, input.Description, timeout)
		cfg.Envs = envs
		cfg.EnvKeys = envKeys
		return cfg, nil
	case domain.TransportStreamableHTTP:
		cfg := domain.NewStreamableHTTP(input.Name, input.URI, input.Description, timeout)
		cfg.Envs = envs
		cfg.EnvKeys = envKeys
		for k, v := range input.Headers {
			cfg.Headers[k] = v
		}
		return cfg, nil
	case domain.TransportInlinePython:
		cfg := domain.NewInlinePython(input.Name, input.Code, input.Description, timeout)
		if len(input.Dependencies) > 0 {
			cfg.Dependencies = append([]string{}, input.Dependencies...)
		}
		return cfg, nil
	case domain.TransportBuiltin:
		cfg := &domain.BuiltinConfig{Name: input.Name, Timeout: domain.Ptr(timeout)}
		if input.DisplayName != "" {
			cfg.DisplayName = domain.Ptr(input.DisplayName)
		}
		if input.Description != "" {
			cfg.Description = domain.Ptr(input.Description)
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("%w: cannot add extensions of type %q", apperrors.ErrInvalidInput, input.Type)
	}
}

// classify tags domain failures with the platform sentinels used at the
// transport boundary.
func classify(err error) error {
	kind, ok := domain.KindOf(err)
	if !ok {
		return err
	}
	switch kind {
	case domain.KindInvalidEnvVar:
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
	case domain.KindSetup:
		return fmt.Errorf("%w: %w", apperrors.ErrPrecondition, err)
	default:
		return err
	}
}

func defaultTimeout() time.Duration {
	return time.Duration(config.DefaultExtensionTimeout) * time.Second
}

func toInfo(entry domain.Entry) dto.ExtensionInfo {
	cfg := entry.Config
	envs, envKeys, _ := domain.EnvsOf(cfg)
	info := dto.ExtensionInfo{
		Key:      entry.Key(),
		Name:     domain.Name(cfg),
		Type:     string(domain.TransportOf(cfg)),
		Enabled:  entry.Enabled,
		Summary:  domain.Render(cfg),
		EnvNames: envs.Keys(),
		EnvKeys:  append([]string{}, envKeys...),
	}
	if bundled, ok := domain.BundledOf(cfg); ok {
		info.Bundled = &bundled
	}
	if timeout, ok := domain.TimeoutOf(cfg); ok {
		seconds := uint64(timeout / time.Second)
		info.TimeoutSeconds = &seconds
	}
	info.Description = descriptionOf(cfg)
	summary := domain.InfoOf(cfg)
	info.Instructions = summary.Instructions
	info.HasResources = summary.HasResources
	for _, tool := range domain.ToolInfosOf(cfg) {
		out := dto.ToolInfo{Name: tool.Name, Description: tool.Description, Parameters: tool.Parameters}
		if tool.Permission != nil {
			level := string(*tool.Permission)
			out.Permission = &level
		}
		info.Tools = append(info.Tools, out)
	}
	return info
}

func descriptionOf(cfg domain.Config) string {
	var description *string
	switch c := cfg.(type) {
	case *domain.SSEConfig:
		description = c.Description
	case *domain.StdioConfig:
		description = c.Description
	case *domain.BuiltinConfig:
		description = c.Description
	case *domain.StreamableHTTPConfig:
		description = c.Description
	case *domain.FrontendConfig:
		description = c.Instructions
	case *domain.InlinePythonConfig:
		description = c.Description
	}
	if description == nil {
		return ""
	}
	return *description
}

func toPlanDTO(plan domain.LaunchPlan) dto.LaunchPlan {
	return dto.LaunchPlan{
		ID:             plan.ID,
		Key:            plan.Key,
		Name:           plan.Name,
		Type:           string(plan.Kind),
		Command:        plan.Command,
		Args:           plan.Args,
		URI:            plan.URI,
		Headers:        plan.Headers,
		Env:            plan.Env,
		TimeoutSeconds: int64(plan.Timeout / time.Second),
		Summary:        plan.Summary,
	}
}
