package repoforge

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Push-restriction modes for branch protection.
const (
	RestrictPushesOff        = "off"
	RestrictPushesAdmins     = "admins"
	RestrictPushesRestricted = "restricted"
)

// TypePolicy governs whether a user may override the repository type a
// template declares.
type TypePolicy string

const (
	// TypePolicyFixed forbids overriding the template's repository type.
	TypePolicyFixed TypePolicy = "fixed"

	// TypePolicyPreferable treats the template's type as a default the
	// user may override.
	TypePolicyPreferable TypePolicy = "preferable"
)

// RepositoryTypeSpec is a template's declaration of its intended
// repository type.
type RepositoryTypeSpec struct {
	Type   string     `yaml:"type" validate:"required"`
	Policy TypePolicy `yaml:"policy" validate:"omitempty,oneof=fixed preferable"`
}

// RepositorySection holds repository feature flags and merge settings.
type RepositorySection struct {
	Issues              *Overridable[bool]   `yaml:"issues,omitempty"`
	Wiki                *Overridable[bool]   `yaml:"wiki,omitempty"`
	Projects            *Overridable[bool]   `yaml:"projects,omitempty"`
	Discussions         *Overridable[bool]   `yaml:"discussions,omitempty"`
	Visibility          *Overridable[string] `yaml:"visibility,omitempty"`
	DefaultBranch       *Overridable[string] `yaml:"default_branch,omitempty"`
	AllowSquashMerge    *Overridable[bool]   `yaml:"allow_squash_merge,omitempty"`
	AllowMergeCommit    *Overridable[bool]   `yaml:"allow_merge_commit,omitempty"`
	AllowRebaseMerge    *Overridable[bool]   `yaml:"allow_rebase_merge,omitempty"`
	DeleteBranchOnMerge *Overridable[bool]   `yaml:"delete_branch_on_merge,omitempty"`
}

// PullRequestSection holds pull-request review policy.
type PullRequestSection struct {
	RequiredReviews        *Overridable[int]  `yaml:"required_reviews,omitempty"`
	RequireCodeOwnerReview *Overridable[bool] `yaml:"require_code_owner_review,omitempty"`
	DismissStaleReviews    *Overridable[bool] `yaml:"dismiss_stale_reviews,omitempty"`
	AllowDraft             *Overridable[bool] `yaml:"allow_draft,omitempty"`
}

// BranchProtectionSection holds branch-protection policy.
type BranchProtectionSection struct {
	Pattern              *Overridable[string]   `yaml:"pattern,omitempty"`
	RequiredReviews      *Overridable[int]      `yaml:"required_reviews,omitempty"`
	EnforceAdmins        *Overridable[bool]     `yaml:"enforce_admins,omitempty"`
	RequireSignedCommits *Overridable[bool]     `yaml:"require_signed_commits,omitempty"`
	RequiredChecks       *Overridable[[]string] `yaml:"required_checks,omitempty"`
	RestrictPushes       *Overridable[string]   `yaml:"restrict_pushes,omitempty"`
	PushAllowlist        *Overridable[[]string] `yaml:"push_allowlist,omitempty"`
}

// PushLimitsSection holds push-size policy.
type PushLimitsSection struct {
	MaxFileSizeMB    *Overridable[int]  `yaml:"max_file_size_mb,omitempty"`
	BlockForcePushes *Overridable[bool] `yaml:"block_force_pushes,omitempty"`
}

// LabelConfig describes one issue label. Labels are identified by name.
type LabelConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Color       string `yaml:"color" validate:"omitempty,hexcolor"`
	Description string `yaml:"description,omitempty"`
}

// WebhookConfig describes one repository webhook. Webhooks are identified
// by (URL, event).
type WebhookConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	Event       string `yaml:"event" validate:"required"`
	ContentType string `yaml:"content_type,omitempty" validate:"omitempty,oneof=json form"`
	Active      *bool  `yaml:"active,omitempty"`
}

// AppConfig describes one required GitHub App. Apps are identified by ID.
type AppConfig struct {
	ID   int64  `yaml:"id" validate:"required,gt=0"`
	Slug string `yaml:"slug,omitempty"`
}

// EnvironmentConfig describes one deployment environment. Environments are
// identified by name.
type EnvironmentConfig struct {
	Name      string   `yaml:"name" validate:"required"`
	WaitTimer int      `yaml:"wait_timer,omitempty" validate:"gte=0"`
	Reviewers []string `yaml:"reviewers,omitempty"`
}

// CustomProperty describes one organization custom property value.
// Properties are identified by name.
type CustomProperty struct {
	Name  string `yaml:"name" validate:"required"`
	Value string `yaml:"value"`
}

// SettingsBlock is the settings shape shared by every governance layer.
// In the organization-wide defaults document the scalar fields use the
// explicit {value, override_allowed} record shape; lower layers use bare
// values.
type SettingsBlock struct {
	Repository       *RepositorySection       `yaml:"repository,omitempty"`
	PullRequests     *PullRequestSection      `yaml:"pull_requests,omitempty"`
	BranchProtection *BranchProtectionSection `yaml:"branch_protection,omitempty"`
	PushLimits       *PushLimitsSection       `yaml:"push_limits,omitempty"`
	Labels           []LabelConfig            `yaml:"labels,omitempty" validate:"dive"`
	Webhooks         []WebhookConfig          `yaml:"webhooks,omitempty" validate:"dive"`
	Apps             []AppConfig              `yaml:"apps,omitempty" validate:"dive"`
	Environments     []EnvironmentConfig      `yaml:"environments,omitempty" validate:"dive"`
	Properties       []CustomProperty         `yaml:"properties,omitempty" validate:"dive"`
}

// GlobalDefaults is the organization-wide defaults layer
// (global/defaults.yaml). The only layer that declares override policy.
type GlobalDefaults struct {
	SettingsBlock `yaml:",inline"`
}

// RepositoryTypeConfig is the repository-type policy layer
// (types/{type}/config.yaml).
type RepositoryTypeConfig struct {
	SettingsBlock `yaml:",inline"`
}

// TeamConfig is the team policy layer (teams/{team}/config.yaml).
type TeamConfig struct {
	SettingsBlock `yaml:",inline"`
}

// TemplateConfig is the template policy layer
// (templates/{name}/template.yaml). Alongside its setting overrides it
// carries template metadata and the template's repository-type declaration.
type TemplateConfig struct {
	Name           string              `yaml:"name,omitempty"`
	Author         string              `yaml:"author,omitempty"`
	Tags           []string            `yaml:"tags,omitempty"`
	RepositoryType *RepositoryTypeSpec `yaml:"repository_type,omitempty"`
	SettingsBlock  `yaml:",inline"`
}

// decodeStrict unmarshals a layer document, rejecting unknown fields.
func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// DecodeGlobalDefaults parses a global defaults document.
func DecodeGlobalDefaults(data []byte) (*GlobalDefaults, error) {
	var g GlobalDefaults
	if err := decodeStrict(data, &g); err != nil {
		return nil, fmt.Errorf("decode global defaults: %w", err)
	}
	return &g, nil
}

// DecodeRepositoryTypeConfig parses a repository-type document.
func DecodeRepositoryTypeConfig(data []byte) (*RepositoryTypeConfig, error) {
	var c RepositoryTypeConfig
	if err := decodeStrict(data, &c); err != nil {
		return nil, fmt.Errorf("decode repository type config: %w", err)
	}
	return &c, nil
}

// DecodeTeamConfig parses a team document.
func DecodeTeamConfig(data []byte) (*TeamConfig, error) {
	var c TeamConfig
	if err := decodeStrict(data, &c); err != nil {
		return nil, fmt.Errorf("decode team config: %w", err)
	}
	return &c, nil
}

// decodeStandardLabels parses the organization's standard label document,
// a mapping from label name to label attributes. Entry names default to
// their map key.
func decodeStandardLabels(data []byte) (map[string]LabelConfig, error) {
	var labels map[string]LabelConfig
	if err := decodeStrict(data, &labels); err != nil {
		return nil, fmt.Errorf("decode standard labels: %w", err)
	}
	for name, label := range labels {
		if label.Name == "" {
			label.Name = name
			labels[name] = label
		}
	}
	return labels, nil
}

// DecodeTemplateConfig parses a template document.
func DecodeTemplateConfig(data []byte) (*TemplateConfig, error) {
	var c TemplateConfig
	if err := decodeStrict(data, &c); err != nil {
		return nil, fmt.Errorf("decode template config: %w", err)
	}
	return &c, nil
}
