package repoforge

import "context"

// MockProvider is a mock implementation of MetadataRepositoryProvider for
// testing. Unset funcs return benign defaults.
type MockProvider struct {
	DiscoverFunc          func(ctx context.Context, org string) (*MetadataRepository, error)
	ValidateStructureFunc func(ctx context.Context, repo *MetadataRepository) error
	GlobalDefaultsFunc    func(ctx context.Context, repo *MetadataRepository) (*GlobalDefaults, error)
	TeamConfigFunc        func(ctx context.Context, repo *MetadataRepository, team string) (*TeamConfig, error)
	TypeConfigFunc        func(ctx context.Context, repo *MetadataRepository, typeName string) (*RepositoryTypeConfig, error)
	TemplateConfigFunc    func(ctx context.Context, repo *MetadataRepository, name string) (*TemplateConfig, error)
	StandardLabelsFunc    func(ctx context.Context, repo *MetadataRepository) (map[string]LabelConfig, error)
	ListTypesFunc         func(ctx context.Context, repo *MetadataRepository) ([]string, error)
}

// DiscoverMetadataRepository implements MetadataRepositoryProvider.
func (m *MockProvider) DiscoverMetadataRepository(ctx context.Context, org string) (*MetadataRepository, error) {
	if m.DiscoverFunc != nil {
		return m.DiscoverFunc(ctx, org)
	}
	return &MetadataRepository{
		Organization:  org,
		Name:          "repo-settings",
		DefaultBranch: "main",
		Version:       "deadbeef",
	}, nil
}

// ValidateRepositoryStructure implements MetadataRepositoryProvider.
func (m *MockProvider) ValidateRepositoryStructure(ctx context.Context, repo *MetadataRepository) error {
	if m.ValidateStructureFunc != nil {
		return m.ValidateStructureFunc(ctx, repo)
	}
	return nil
}

// LoadGlobalDefaults implements MetadataRepositoryProvider.
func (m *MockProvider) LoadGlobalDefaults(ctx context.Context, repo *MetadataRepository) (*GlobalDefaults, error) {
	if m.GlobalDefaultsFunc != nil {
		return m.GlobalDefaultsFunc(ctx, repo)
	}
	return &GlobalDefaults{}, nil
}

// LoadTeamConfiguration implements MetadataRepositoryProvider.
func (m *MockProvider) LoadTeamConfiguration(ctx context.Context, repo *MetadataRepository, team string) (*TeamConfig, error) {
	if m.TeamConfigFunc != nil {
		return m.TeamConfigFunc(ctx, repo, team)
	}
	return nil, nil
}

// LoadRepositoryTypeConfiguration implements MetadataRepositoryProvider.
func (m *MockProvider) LoadRepositoryTypeConfiguration(ctx context.Context, repo *MetadataRepository, typeName string) (*RepositoryTypeConfig, error) {
	if m.TypeConfigFunc != nil {
		return m.TypeConfigFunc(ctx, repo, typeName)
	}
	return nil, nil
}

// LoadTemplateConfiguration implements MetadataRepositoryProvider.
func (m *MockProvider) LoadTemplateConfiguration(ctx context.Context, repo *MetadataRepository, name string) (*TemplateConfig, error) {
	if m.TemplateConfigFunc != nil {
		return m.TemplateConfigFunc(ctx, repo, name)
	}
	return &TemplateConfig{Name: name}, nil
}

// LoadStandardLabels implements MetadataRepositoryProvider.
func (m *MockProvider) LoadStandardLabels(ctx context.Context, repo *MetadataRepository) (map[string]LabelConfig, error) {
	if m.StandardLabelsFunc != nil {
		return m.StandardLabelsFunc(ctx, repo)
	}
	return map[string]LabelConfig{}, nil
}

// ListAvailableRepositoryTypes implements MetadataRepositoryProvider.
func (m *MockProvider) ListAvailableRepositoryTypes(ctx context.Context, repo *MetadataRepository) ([]string, error) {
	if m.ListTypesFunc != nil {
		return m.ListTypesFunc(ctx, repo)
	}
	return nil, nil
}
