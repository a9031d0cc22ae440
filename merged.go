package repoforge

// MergedRepository is the resolved repository settings block. Fields not
// set by any layer hold their zero value; consult the trace to distinguish
// "unset" from an explicit zero.
type MergedRepository struct {
	Issues              bool
	Wiki                bool
	Projects            bool
	Discussions         bool
	Visibility          string `validate:"omitempty,oneof=public private internal"`
	DefaultBranch       string
	AllowSquashMerge    bool
	AllowMergeCommit    bool
	AllowRebaseMerge    bool
	DeleteBranchOnMerge bool
}

// MergedPullRequests is the resolved pull-request policy.
type MergedPullRequests struct {
	RequiredReviews        int `validate:"gte=0"`
	RequireCodeOwnerReview bool
	DismissStaleReviews    bool
	AllowDraft             bool
}

// MergedBranchProtection is the resolved branch-protection policy.
type MergedBranchProtection struct {
	Pattern              string
	RequiredReviews      int `validate:"gte=0"`
	EnforceAdmins        bool
	RequireSignedCommits bool
	RequiredChecks       []string
	RestrictPushes       string `validate:"omitempty,oneof=off admins restricted"`
	PushAllowlist        []string
}

// MergedPushLimits is the resolved push policy.
type MergedPushLimits struct {
	MaxFileSizeMB    int `validate:"gte=0"`
	BlockForcePushes bool
}

// MergedConfiguration is the authoritative configuration produced by one
// resolution run, with per-field provenance in Trace.
type MergedConfiguration struct {
	// Context is the resolution run that produced this configuration.
	Context ConfigurationContext

	// RepositoryType is the resolved repository type, empty when none was
	// assigned.
	RepositoryType string

	Repository       MergedRepository
	PullRequests     MergedPullRequests
	BranchProtection MergedBranchProtection
	PushLimits       MergedPushLimits

	// Labels is keyed by label name; keys are unique by construction.
	Labels map[string]LabelConfig `validate:"dive"`

	// Webhooks, Apps, Environments, and Properties are sorted by their
	// identity keys so repeated merges of the same inputs are
	// byte-identical.
	Webhooks     []WebhookConfig     `validate:"dive"`
	Apps         []AppConfig         `validate:"dive"`
	Environments []EnvironmentConfig `validate:"dive"`
	Properties   []CustomProperty    `validate:"dive"`

	Trace *SourceTrace
}
