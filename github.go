package repoforge

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// DefaultRequestTimeout bounds every metadata-repository call. A timed-out
// fetch surfaces as a load failure to the resolution engine.
const DefaultRequestTimeout = 30 * time.Second

// GitHubProviderConfig configures a GitHub-backed metadata provider.
type GitHubProviderConfig struct {
	// Token is a personal access token or GitHub App installation token.
	// Ignored when TokenSource is set.
	Token string

	// TokenSource supplies tokens when set, e.g. an auth.AppTokenSource
	// for GitHub App authentication.
	TokenSource oauth2.TokenSource

	// BaseURL points at a GitHub Enterprise instance (empty for
	// github.com).
	BaseURL string

	// RepositoryName is the configured name of the metadata repository.
	// When empty, discovery falls back to the repository carrying the
	// DiscoveryTopic topic.
	RepositoryName string

	// RequestTimeout bounds each API call. Defaults to
	// DefaultRequestTimeout if zero.
	RequestTimeout time.Duration
}

// GitHubProvider implements MetadataRepositoryProvider for GitHub
// organizations.
type GitHubProvider struct {
	client   *github.Client
	repoName string
}

// NewGitHubProvider creates a GitHub metadata provider. Requests run over
// a retrying transport so transient GitHub failures do not immediately
// fail a resolution.
func NewGitHubProvider(cfg GitHubProviderConfig) (*GitHubProvider, error) {
	ts := cfg.TokenSource
	if ts == nil {
		if cfg.Token == "" {
			return nil, fmt.Errorf("GitHub token or token source is required")
		}
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 3
	base := rc.StandardClient()
	base.Timeout = timeout

	httpCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	tc := oauth2.NewClient(httpCtx, ts)

	client := github.NewClient(tc)
	if cfg.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(cfg.BaseURL, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise URL: %w", err)
		}
	}

	return &GitHubProvider{client: client, repoName: cfg.RepositoryName}, nil
}

// DiscoverMetadataRepository locates the organization's configuration
// repository by configured name, falling back to the first organization
// repository carrying the discovery topic.
func (p *GitHubProvider) DiscoverMetadataRepository(ctx context.Context, org string) (*MetadataRepository, error) {
	if p.repoName != "" {
		repo, resp, err := p.client.Repositories.Get(ctx, org, p.repoName)
		if err != nil {
			if isNotFound(resp) {
				return nil, fmt.Errorf("%s/%s: %w", org, p.repoName, ErrMetadataRepositoryNotFound)
			}
			return nil, fmt.Errorf("get metadata repository: %w", err)
		}
		return p.repoHandle(ctx, org, repo)
	}

	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		repos, resp, err := p.client.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("list organization repositories: %w", err)
		}
		for _, repo := range repos {
			for _, topic := range repo.Topics {
				if topic == DiscoveryTopic {
					return p.repoHandle(ctx, org, repo)
				}
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return nil, fmt.Errorf("organization %s: %w", org, ErrMetadataRepositoryNotFound)
}

// repoHandle builds the repository handle, stamping it with the HEAD SHA
// of the default branch as the version marker.
func (p *GitHubProvider) repoHandle(ctx context.Context, org string, repo *github.Repository) (*MetadataRepository, error) {
	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = "main"
	}

	version := ""
	br, _, err := p.client.Repositories.GetBranch(ctx, org, repo.GetName(), branch, 0)
	if err == nil && br.Commit != nil {
		version = br.Commit.GetSHA()
	}

	return &MetadataRepository{
		Organization:  org,
		Name:          repo.GetName(),
		DefaultBranch: branch,
		Version:       version,
	}, nil
}

// ValidateRepositoryStructure confirms the layer-document layout exists.
func (p *GitHubProvider) ValidateRepositoryStructure(ctx context.Context, repo *MetadataRepository) error {
	if _, err := p.fetchFile(ctx, repo, globalDefaultsPath); err != nil {
		return fmt.Errorf("%s missing %s: %w", repo.Name, globalDefaultsPath, ErrMetadataRepositoryStructureInvalid)
	}
	return nil
}

// LoadGlobalDefaults implements MetadataRepositoryProvider.
func (p *GitHubProvider) LoadGlobalDefaults(ctx context.Context, repo *MetadataRepository) (*GlobalDefaults, error) {
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
func (p *GitHubProvider) LoadTeamConfiguration(ctx context.Context, repo *MetadataRepository, team string) (*TeamConfig, error) {
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
func (p *GitHubProvider) LoadRepositoryTypeConfiguration(ctx context.Context, repo *MetadataRepository, typeName string) (*RepositoryTypeConfig, error) {
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
func (p *GitHubProvider) LoadTemplateConfiguration(ctx context.Context, repo *MetadataRepository, name string) (*TemplateConfig, error) {
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
func (p *GitHubProvider) LoadStandardLabels(ctx context.Context, repo *MetadataRepository) (map[string]LabelConfig, error) {
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
func (p *GitHubProvider) ListAvailableRepositoryTypes(ctx context.Context, repo *MetadataRepository) ([]string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: repo.DefaultBranch}
	_, dir, resp, err := p.client.Repositories.GetContents(ctx, repo.Organization, repo.Name, typesDir, opts)
	if err != nil {
		if isNotFound(resp) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", typesDir, err)
	}

	var types []string
	for _, entry := range dir {
		if entry.GetType() == "dir" {
			types = append(types, entry.GetName())
		}
	}
	return types, nil
}

// fetchFile reads one document from the metadata repository.
func (p *GitHubProvider) fetchFile(ctx context.Context, repo *MetadataRepository, path string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: repo.DefaultBranch}
	file, _, resp, err := p.client.Repositories.GetContents(ctx, repo.Organization, repo.Name, path, opts)
	if err != nil {
		if isNotFound(resp) {
			return nil, fmt.Errorf("%s: %w", path, ErrLayerNotFound)
		}
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory: %w", path, ErrLayerNotFound)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", path, err)
	}
	return []byte(content), nil
}

func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}
