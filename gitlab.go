package repoforge

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xanzy/go-gitlab"
)

// GitLabProviderConfig configures a GitLab-backed metadata provider.
type GitLabProviderConfig struct {
	// Token is a personal or project access token.
	Token string

	// BaseURL points at a self-hosted GitLab instance (empty for
	// gitlab.com).
	BaseURL string

	// RepositoryName is the configured name of the metadata project
	// within the group. When empty, discovery falls back to the group
	// project carrying the DiscoveryTopic topic.
	RepositoryName string
}

// GitLabProvider implements MetadataRepositoryProvider for GitLab groups.
// The "organization" of a context maps to a GitLab group path.
type GitLabProvider struct {
	client   *gitlab.Client
	repoName string
}

// NewGitLabProvider creates a GitLab metadata provider. The go-gitlab
// client retries transient failures on its own.
func NewGitLabProvider(cfg GitLabProviderConfig) (*GitLabProvider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}

	var client *gitlab.Client
	var err error
	if cfg.BaseURL != "" {
		client, err = gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(cfg.BaseURL))
	} else {
		client, err = gitlab.NewClient(cfg.Token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}

	return &GitLabProvider{client: client, repoName: cfg.RepositoryName}, nil
}

// DiscoverMetadataRepository locates the group's configuration project by
// configured name or by the discovery topic.
func (p *GitLabProvider) DiscoverMetadataRepository(ctx context.Context, org string) (*MetadataRepository, error) {
	if p.repoName != "" {
		project, resp, err := p.client.Projects.GetProject(org+"/"+p.repoName, nil, gitlab.WithContext(ctx))
		if err != nil {
			if isGitLabNotFound(resp) {
				return nil, fmt.Errorf("%s/%s: %w", org, p.repoName, ErrMetadataRepositoryNotFound)
			}
			return nil, fmt.Errorf("get metadata project: %w", err)
		}
		return p.repoHandle(ctx, org, project)
	}

	opts := &gitlab.ListGroupProjectsOptions{
		Topic:       gitlab.Ptr(DiscoveryTopic),
		ListOptions: gitlab.ListOptions{PerPage: 1},
	}
	projects, _, err := p.client.Groups.ListGroupProjects(org, opts, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list group projects: %w", err)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("group %s: %w", org, ErrMetadataRepositoryNotFound)
	}
	return p.repoHandle(ctx, org, projects[0])
}

func (p *GitLabProvider) repoHandle(ctx context.Context, org string, project *gitlab.Project) (*MetadataRepository, error) {
	branch := project.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	version := ""
	br, _, err := p.client.Branches.GetBranch(project.ID, branch, gitlab.WithContext(ctx))
	if err == nil && br.Commit != nil {
		version = br.Commit.ID
	}

	return &MetadataRepository{
		Organization:  org,
		Name:          project.Path,
		DefaultBranch: branch,
		Version:       version,
	}, nil
}

// ValidateRepositoryStructure confirms the layer-document layout exists.
func (p *GitLabProvider) ValidateRepositoryStructure(ctx context.Context, repo *MetadataRepository) error {
	if _, err := p.fetchFile(ctx, repo, globalDefaultsPath); err != nil {
		return fmt.Errorf("%s missing %s: %w", repo.Name, globalDefaultsPath, ErrMetadataRepositoryStructureInvalid)
	}
	return nil
}

// LoadGlobalDefaults implements MetadataRepositoryProvider.
func (p *GitLabProvider) LoadGlobalDefaults(ctx context.Context, repo *MetadataRepository) (*GlobalDefaults, error) {
	data, err := p.fetchFile(ctx, repo, globalDefaultsPath)
	if err != nil {
		return nil, err
	}
	g, err := DecodeGlobalDefaults(data)
	if err != nil {
		return nil, &SchemaViolationError{File: globalDefaultsPath, Message: err.Error()}
	}
	return g, nil
}

// LoadTeamConfiguration implements MetadataRepositoryProvider.
func (p *GitLabProvider) LoadTeamConfiguration(ctx context.Context, repo *MetadataRepository, team string) (*TeamConfig, error) {
	file := teamConfigPath(team)
	data, err := p.fetchFile(ctx, repo, file)
	if err != nil {
		if isLayerNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	c, err := DecodeTeamConfig(data)
	if err != nil {
		return nil, &SchemaViolationError{File: file, Message: err.Error()}
	}
	return c, nil
}

// LoadRepositoryTypeConfiguration implements MetadataRepositoryProvider.
func (p *GitLabProvider) LoadRepositoryTypeConfiguration(ctx context.Context, repo *MetadataRepository, typeName string) (*RepositoryTypeConfig, error) {
	file := typeConfigPath(typeName)
	data, err := p.fetchFile(ctx, repo, file)
	if err != nil {
		if isLayerNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	c, err := DecodeRepositoryTypeConfig(data)
	if err != nil {
		return nil, &SchemaViolationError{File: file, Message: err.Error()}
	}
	return c, nil
}

// LoadTemplateConfiguration implements MetadataRepositoryProvider.
func (p *GitLabProvider) LoadTemplateConfiguration(ctx context.Context, repo *MetadataRepository, name string) (*TemplateConfig, error) {
	file := templateConfigPath(name)
	data, err := p.fetchFile(ctx, repo, file)
	if err != nil {
		return nil, err
	}
	c, err := DecodeTemplateConfig(data)
	if err != nil {
		return nil, &SchemaViolationError{File: file, Message: err.Error()}
	}
	if c.Name == "" {
		c.Name = name
	}
	return c, nil
}

// LoadStandardLabels implements MetadataRepositoryProvider.
func (p *GitLabProvider) LoadStandardLabels(ctx context.Context, repo *MetadataRepository) (map[string]LabelConfig, error) {
	data, err := p.fetchFile(ctx, repo, standardLabelsPath)
	if err != nil {
		if isLayerNotFound(err) {
			return map[string]LabelConfig{}, nil
		}
		return nil, err
	}
	labels, err := decodeStandardLabels(data)
	if err != nil {
		return nil, &SchemaViolationError{File: standardLabelsPath, Message: err.Error()}
	}
	return labels, nil
}

// ListAvailableRepositoryTypes implements MetadataRepositoryProvider.
func (p *GitLabProvider) ListAvailableRepositoryTypes(ctx context.Context, repo *MetadataRepository) ([]string, error) {
	opts := &gitlab.ListTreeOptions{
		Path: gitlab.Ptr(typesDir),
		Ref:  gitlab.Ptr(repo.DefaultBranch),
	}
	tree, resp, err := p.client.Repositories.ListTree(p.projectID(repo), opts, gitlab.WithContext(ctx))
	if err != nil {
		if isGitLabNotFound(resp) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", typesDir, err)
	}

	var types []string
	for _, entry := range tree {
		if entry.Type == "tree" {
			types = append(types, entry.Name)
		}
	}
	return types, nil
}

func (p *GitLabProvider) projectID(repo *MetadataRepository) string {
	return repo.Organization + "/" + repo.Name
}

// fetchFile reads one document from the metadata project.
func (p *GitLabProvider) fetchFile(ctx context.Context, repo *MetadataRepository, path string) ([]byte, error) {
	opts := &gitlab.GetRawFileOptions{Ref: gitlab.Ptr(repo.DefaultBranch)}
	data, resp, err := p.client.RepositoryFiles.GetRawFile(p.projectID(repo), path, opts, gitlab.WithContext(ctx))
	if err != nil {
		if isGitLabNotFound(resp) {
			return nil, fmt.Errorf("%s: %w", path, ErrLayerNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	return data, nil
}

func isGitLabNotFound(resp *gitlab.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
