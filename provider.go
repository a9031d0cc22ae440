package repoforge

import (
	"context"
	"path"
)

// Well-known layout of the metadata repository. One YAML document per
// governance layer.
const (
	globalDefaultsPath = "global/defaults.yaml"
	standardLabelsPath = "global/labels.yaml"
	teamsDir           = "teams"
	typesDir           = "types"
	templatesDir       = "templates"

	// DiscoveryTopic marks an organization's metadata repository when no
	// repository name is configured.
	DiscoveryTopic = "repo-settings"
)

func teamConfigPath(team string) string {
	return path.Join(teamsDir, team, "config.yaml")
}

func typeConfigPath(typeName string) string {
	return path.Join(typesDir, typeName, "config.yaml")
}

func templateConfigPath(name string) string {
	return path.Join(templatesDir, name, "template.yaml")
}

// MetadataRepository is a handle to an organization's configuration
// repository, as located by a provider.
type MetadataRepository struct {
	// Organization that owns the repository.
	Organization string

	// Name of the repository within the organization.
	Name string

	// DefaultBranch the layer documents are read from.
	DefaultBranch string

	// Version is the repository-version marker: the HEAD commit SHA of
	// the default branch at discovery time. Cached layer documents carry
	// it so a changed metadata repository can be detected.
	Version string
}

// MetadataRepositoryProvider discovers and reads an organization's
// configuration repository. Implementations must treat a missing optional
// document (team, repository type) as (nil, nil), not an error, and must
// bound every call with the supplied context.
type MetadataRepositoryProvider interface {
	// DiscoverMetadataRepository locates the organization's configuration
	// repository by configured name or by the discovery topic. Returns
	// ErrMetadataRepositoryNotFound when neither matches.
	DiscoverMetadataRepository(ctx context.Context, org string) (*MetadataRepository, error)

	// ValidateRepositoryStructure confirms the required directories and
	// files exist before any layer load is attempted. Returns an error
	// wrapping ErrMetadataRepositoryStructureInvalid otherwise.
	ValidateRepositoryStructure(ctx context.Context, repo *MetadataRepository) error

	// LoadGlobalDefaults reads global/defaults.yaml.
	LoadGlobalDefaults(ctx context.Context, repo *MetadataRepository) (*GlobalDefaults, error)

	// LoadTeamConfiguration reads teams/{team}/config.yaml, returning
	// (nil, nil) when the team has no configuration.
	LoadTeamConfiguration(ctx context.Context, repo *MetadataRepository, team string) (*TeamConfig, error)

	// LoadRepositoryTypeConfiguration reads types/{type}/config.yaml,
	// returning (nil, nil) when the type has no configuration.
	LoadRepositoryTypeConfiguration(ctx context.Context, repo *MetadataRepository, typeName string) (*RepositoryTypeConfig, error)

	// LoadTemplateConfiguration reads templates/{name}/template.yaml.
	LoadTemplateConfiguration(ctx context.Context, repo *MetadataRepository, name string) (*TemplateConfig, error)

	// LoadStandardLabels reads the organization's standard label set from
	// global/labels.yaml, keyed by label name.
	LoadStandardLabels(ctx context.Context, repo *MetadataRepository) (map[string]LabelConfig, error)

	// ListAvailableRepositoryTypes lists the directory names under types/.
	ListAvailableRepositoryTypes(ctx context.Context, repo *MetadataRepository) ([]string, error)
}
