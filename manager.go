package repoforge

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/randalmurphal/repoforge/cache"
)

// resolutionState tracks where a resolution run is in its lifecycle.
// Resolution is all-or-nothing: there is no partially resolved state.
type resolutionState string

const (
	stateIdle          resolutionState = "idle"
	stateLoadingLayers resolutionState = "loading-layers"
	stateValidating    resolutionState = "validating"
	stateMerging       resolutionState = "merging"
	stateResolved      resolutionState = "resolved"
	stateFailed        resolutionState = "failed"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Provider reads the organization's metadata repository. Required.
	Provider MetadataRepositoryProvider

	// Cache holds loaded layer documents. Defaults to a cache with the
	// default TTL if nil.
	Cache *cache.LayerCache

	// Validator checks layer documents and merged results. Defaults to
	// NewValidator() if nil.
	Validator *Validator

	// Logger receives state transitions and warnings. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// Manager orchestrates configuration resolution: cache lookup, provider
// fallback, validation, and merge. It owns its cache explicitly; there is
// no process-wide shared state.
type Manager struct {
	provider  MetadataRepositoryProvider
	cache     *cache.LayerCache
	validator *Validator
	logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("metadata repository provider is required")
	}

	m := &Manager{
		provider:  cfg.Provider,
		cache:     cfg.Cache,
		validator: cfg.Validator,
		logger:    cfg.Logger,
	}
	if m.cache == nil {
		m.cache = cache.New(cache.Config{})
	}
	if m.validator == nil {
		m.validator = NewValidator()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m, nil
}

// InvalidateOrganization drops every cached document for the organization:
// its global defaults and all team, type, and template entries.
func (m *Manager) InvalidateOrganization(org string) {
	m.cache.InvalidateOrganization(org)
}

// InvalidateTeam drops only the given team's cached document.
func (m *Manager) InvalidateTeam(org, team string) {
	m.cache.InvalidateTeam(org, team)
}

// resolution is the per-run state. Each call to Resolve gets its own, so
// concurrent resolutions never share mutable state beyond the cache.
type resolution struct {
	m     *Manager
	rctx  ConfigurationContext
	repo  *MetadataRepository
	state resolutionState
}

func (r *resolution) transition(next resolutionState) {
	r.state = next
	r.m.logger.Debug("resolution state changed",
		"resolution_id", r.rctx.ResolutionID,
		"org", r.rctx.Organization,
		"state", next)
}

func (r *resolution) fail(err error) error {
	r.transition(stateFailed)
	r.m.logger.Warn("resolution failed",
		"resolution_id", r.rctx.ResolutionID,
		"org", r.rctx.Organization,
		"error", err)
	return err
}

// Resolve produces the merged configuration for one creation request.
//
// Each required layer is taken from the cache when fresh; on a miss the
// provider is called with no cache lock held, the document is validated,
// and only a fully valid document is inserted. Any load, validation, or
// policy failure aborts the whole resolution; nothing partial is returned
// or cached. Two concurrent misses for the same key may both fetch; the
// last writer wins, which is harmless since both fetched the same
// document.
func (m *Manager) Resolve(ctx context.Context, rctx ConfigurationContext) (*MergedConfiguration, error) {
	r := &resolution{m: m, rctx: rctx, state: stateIdle}
	r.transition(stateLoadingLayers)

	repo, err := m.metadataRepo(ctx, rctx.Organization)
	if err != nil {
		return nil, r.fail(err)
	}
	r.repo = repo

	global, err := resolveLayer(ctx, r,
		cache.Key{Org: rctx.Organization, Kind: cache.KindGlobal},
		func(ctx context.Context) (*GlobalDefaults, error) {
			return m.provider.LoadGlobalDefaults(ctx, repo)
		},
		m.validator.ValidateGlobalDefaults,
	)
	if err != nil {
		return nil, r.fail(&LoadError{Layer: SourceGlobal, Err: err})
	}
	if global == nil {
		return nil, r.fail(&LoadError{Layer: SourceGlobal, Err: ErrLayerNotFound})
	}

	template, err := resolveLayer(ctx, r,
		cache.Key{Org: rctx.Organization, Kind: cache.KindTemplate, Name: rctx.Template},
		func(ctx context.Context) (*TemplateConfig, error) {
			return m.provider.LoadTemplateConfiguration(ctx, repo, rctx.Template)
		},
		m.validator.ValidateTemplateConfig,
	)
	if err != nil {
		return nil, r.fail(&LoadError{Layer: SourceTemplate, Name: rctx.Template, Err: err})
	}
	if template == nil {
		return nil, r.fail(&LoadError{Layer: SourceTemplate, Name: rctx.Template, Err: ErrLayerNotFound})
	}

	// The template's type policy decides which repository-type layer
	// applies, so it resolves before that layer loads.
	resolvedType, err := ResolveRepositoryType(template, rctx.RepositoryType)
	if err != nil {
		return nil, r.fail(err)
	}

	var typeCfg *RepositoryTypeConfig
	if resolvedType != "" {
		available, err := m.availableTypes(ctx, r)
		if err != nil {
			return nil, r.fail(&LoadError{Layer: SourceRepositoryType, Name: resolvedType, Err: err})
		}
		if !slices.Contains(available, resolvedType) {
			return nil, r.fail(&RepositoryTypeNotFoundError{RepoType: resolvedType})
		}

		typeCfg, err = resolveLayer(ctx, r,
			cache.Key{Org: rctx.Organization, Kind: cache.KindType, Name: resolvedType},
			func(ctx context.Context) (*RepositoryTypeConfig, error) {
				return m.provider.LoadRepositoryTypeConfiguration(ctx, repo, resolvedType)
			},
			m.validator.ValidateRepositoryTypeConfig,
		)
		if err != nil {
			return nil, r.fail(&LoadError{Layer: SourceRepositoryType, Name: resolvedType, Err: err})
		}
	}

	var teamCfg *TeamConfig
	if rctx.Team != "" {
		teamCfg, err = resolveLayer(ctx, r,
			cache.Key{Org: rctx.Organization, Kind: cache.KindTeam, Name: rctx.Team},
			func(ctx context.Context) (*TeamConfig, error) {
				return m.provider.LoadTeamConfiguration(ctx, repo, rctx.Team)
			},
			m.validator.ValidateTeamConfig,
		)
		if err != nil {
			return nil, r.fail(&LoadError{Layer: SourceTeam, Name: rctx.Team, Err: err})
		}
	}

	r.transition(stateValidating)
	// Layer documents were validated before caching; the merge inputs are
	// in hand and consistent, so validation here is already satisfied.

	r.transition(stateMerging)
	merged, err := Merge(global, typeCfg, teamCfg, template, rctx)
	if err != nil {
		return nil, r.fail(err)
	}

	issues := m.validator.ValidateMerged(merged)
	m.logWarnings(rctx, issues)
	if err := IssuesError(issues); err != nil {
		return nil, r.fail(err)
	}

	r.transition(stateResolved)
	m.logger.Debug("resolution complete",
		"resolution_id", rctx.ResolutionID,
		"org", rctx.Organization,
		"template", rctx.Template,
		"repository_type", merged.RepositoryType,
		"traced_fields", merged.Trace.Len())
	return merged, nil
}

// StandardLabels returns the organization's standard label set, cached
// with the same TTL as layer documents.
func (m *Manager) StandardLabels(ctx context.Context, org string) (map[string]LabelConfig, error) {
	key := cache.Key{Org: org, Kind: cache.KindLabels}
	if e, ok := m.cache.Get(key); ok {
		if labels, ok := e.Document.(map[string]LabelConfig); ok {
			return labels, nil
		}
	}

	repo, err := m.metadataRepo(ctx, org)
	if err != nil {
		return nil, err
	}
	labels, err := m.provider.LoadStandardLabels(ctx, repo)
	if err != nil {
		return nil, err
	}
	m.cache.Put(key, labels, repo.Version)
	return labels, nil
}

// metadataRepo discovers the organization's configuration repository,
// validating its structure on first contact and caching the handle.
func (m *Manager) metadataRepo(ctx context.Context, org string) (*MetadataRepository, error) {
	key := cache.Key{Org: org, Kind: cache.KindRepo}
	if e, ok := m.cache.Get(key); ok {
		if repo, ok := e.Document.(*MetadataRepository); ok {
			return repo, nil
		}
	}

	repo, err := m.provider.DiscoverMetadataRepository(ctx, org)
	if err != nil {
		return nil, err
	}
	if err := m.provider.ValidateRepositoryStructure(ctx, repo); err != nil {
		return nil, err
	}
	m.cache.Put(key, repo, repo.Version)
	return repo, nil
}

// availableTypes lists repository types, cached per organization.
func (m *Manager) availableTypes(ctx context.Context, r *resolution) ([]string, error) {
	key := cache.Key{Org: r.rctx.Organization, Kind: cache.KindTypeIndex}
	if e, ok := m.cache.Get(key); ok {
		if types, ok := e.Document.([]string); ok {
			return types, nil
		}
	}

	types, err := m.provider.ListAvailableRepositoryTypes(ctx, r.repo)
	if err != nil {
		return nil, err
	}
	m.cache.Put(key, types, r.repo.Version)
	return types, nil
}

func (m *Manager) logWarnings(rctx ConfigurationContext, issues []Issue) {
	for _, issue := range issues {
		if issue.Severity == SeverityWarning {
			m.logger.Warn("configuration warning",
				"resolution_id", rctx.ResolutionID,
				"org", rctx.Organization,
				"field", issue.Field,
				"message", issue.Message)
		}
	}
}

// resolveLayer fetches one layer through the cache. On a miss the loader
// runs with no cache lock held; the result is validated and only a clean
// document is inserted. An absent optional layer is cached as absent so
// repeated resolutions do not re-fetch it.
func resolveLayer[T any](ctx context.Context, r *resolution, key cache.Key, load func(context.Context) (*T, error), validate func(*T) []Issue) (*T, error) {
	if e, ok := r.m.cache.Get(key); ok {
		if doc, ok := e.Document.(*T); ok {
			return doc, nil
		}
	}

	doc, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		r.m.cache.Put(key, (*T)(nil), r.repo.Version)
		return nil, nil
	}

	issues := validate(doc)
	r.m.logWarnings(r.rctx, issues)
	if err := IssuesError(issues); err != nil {
		return nil, err
	}

	r.m.cache.Put(key, doc, r.repo.Version)
	return doc, nil
}
