package repoforge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Severity classifies a validation finding. Errors abort resolution;
// warnings are surfaced but non-fatal.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Field    string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validator checks layer documents before they reach the merge and
// sanity-checks merged configurations. Structural rules run through
// struct-tag validation; business rules are coded on top.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateGlobalDefaults checks the organization-wide defaults document.
func (val *Validator) ValidateGlobalDefaults(g *GlobalDefaults) []Issue {
	return val.layerIssues(&g.SettingsBlock, SourceGlobal)
}

// ValidateRepositoryTypeConfig checks a repository-type document.
func (val *Validator) ValidateRepositoryTypeConfig(c *RepositoryTypeConfig) []Issue {
	return val.layerIssues(&c.SettingsBlock, SourceRepositoryType)
}

// ValidateTeamConfig checks a team document.
func (val *Validator) ValidateTeamConfig(c *TeamConfig) []Issue {
	return val.layerIssues(&c.SettingsBlock, SourceTeam)
}

// ValidateTemplateConfig checks a template document.
func (val *Validator) ValidateTemplateConfig(c *TemplateConfig) []Issue {
	issues := val.layerIssues(&c.SettingsBlock, SourceTemplate)
	if spec := c.RepositoryType; spec != nil {
		if err := val.v.Struct(spec); err != nil {
			issues = append(issues, tagIssues("repository_type", err)...)
		}
	}
	return issues
}

// layerIssues runs the structural tag pass and the per-layer business
// rules shared by every governance layer.
func (val *Validator) layerIssues(b *SettingsBlock, layer Source) []Issue {
	var issues []Issue

	if err := val.v.Struct(b); err != nil {
		issues = append(issues, tagIssues("", err)...)
	}

	// Policy declarations belong to the global layer only.
	if layer != SourceGlobal {
		for _, f := range explicitFields(b) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Field:    f,
				Message:  "override_allowed may only be declared in the organization defaults",
			})
		}
	}

	if pr := b.PullRequests; pr != nil && pr.RequiredReviews != nil && pr.RequiredReviews.Value < 0 {
		issues = append(issues, Issue{SeverityError, "pull_requests.required_reviews", "must be non-negative"})
	}
	if pl := b.PushLimits; pl != nil && pl.MaxFileSizeMB != nil && pl.MaxFileSizeMB.Value < 0 {
		issues = append(issues, Issue{SeverityError, "push_limits.max_file_size_mb", "must be non-negative"})
	}
	if bp := b.BranchProtection; bp != nil {
		if bp.RequiredReviews != nil && bp.RequiredReviews.Value < 0 {
			issues = append(issues, Issue{SeverityError, "branch_protection.required_reviews", "must be non-negative"})
		}
		if bp.RestrictPushes != nil {
			switch bp.RestrictPushes.Value {
			case RestrictPushesOff, RestrictPushesAdmins:
			case RestrictPushesRestricted:
				if bp.PushAllowlist == nil || len(bp.PushAllowlist.Value) == 0 {
					issues = append(issues, Issue{SeverityError, "branch_protection.restrict_pushes", "restricted mode requires a non-empty push_allowlist"})
				}
			default:
				issues = append(issues, Issue{SeverityError, "branch_protection.restrict_pushes", "must be one of off, admins, restricted"})
			}
		}
	}

	// Duplicate identities within one document are almost always a copy
	// mistake; the additive merge would silently collapse them.
	issues = append(issues, duplicateKeyIssues(b)...)

	return issues
}

// ValidateMerged sanity-checks the final merged configuration.
func (val *Validator) ValidateMerged(m *MergedConfiguration) []Issue {
	var issues []Issue

	if err := val.v.Struct(m); err != nil {
		issues = append(issues, tagIssues("", err)...)
	}

	bp := m.BranchProtection
	protectionSet := false
	for _, p := range m.Trace.Paths() {
		if strings.HasPrefix(p, "branch_protection.") {
			protectionSet = true
			break
		}
	}
	if protectionSet && bp.Pattern == "" {
		if m.Repository.DefaultBranch == "" {
			issues = append(issues, Issue{SeverityError, "branch_protection.pattern", "branch protection is configured but no branch pattern or default branch is set"})
		} else {
			issues = append(issues, Issue{SeverityWarning, "branch_protection.pattern", "no pattern set; protection will apply to the default branch"})
		}
	}
	if bp.RestrictPushes == RestrictPushesRestricted && len(bp.PushAllowlist) == 0 {
		issues = append(issues, Issue{SeverityError, "branch_protection.restrict_pushes", "restricted mode requires a non-empty push_allowlist"})
	}

	for name, label := range m.Labels {
		if label.Name != name {
			issues = append(issues, Issue{SeverityError, "labels[" + name + "]", "label map key does not match entry name"})
		}
	}

	return issues
}

// IssuesError converts a finding list into a ValidationError when it
// contains at least one error, and nil otherwise.
func IssuesError(issues []Issue) error {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return &ValidationError{Message: i.Field + ": " + i.Message}
		}
	}
	return nil
}

// tagIssues converts struct-tag validation failures into Issues.
func tagIssues(prefix string, err error) []Issue {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []Issue{{SeverityError, prefix, err.Error()}}
	}
	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if prefix != "" {
			field = prefix + "." + fe.Field()
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Field:    field,
			Message:  "failed " + fe.Tag() + " validation",
		})
	}
	return issues
}

// explicitChecker is satisfied by every *Overridable[T].
type explicitChecker interface{ Explicit() bool }

// explicitFields returns the paths of fields declared with the explicit
// {value, override_allowed} record shape.
func explicitFields(b *SettingsBlock) []string {
	var out []string
	check := func(path string, o explicitChecker) {
		if o.Explicit() {
			out = append(out, path)
		}
	}

	if r := b.Repository; r != nil {
		for path, o := range map[string]explicitChecker{
			"repository.issues":                 r.Issues,
			"repository.wiki":                   r.Wiki,
			"repository.projects":               r.Projects,
			"repository.discussions":            r.Discussions,
			"repository.visibility":             r.Visibility,
			"repository.default_branch":         r.DefaultBranch,
			"repository.allow_squash_merge":     r.AllowSquashMerge,
			"repository.allow_merge_commit":     r.AllowMergeCommit,
			"repository.allow_rebase_merge":     r.AllowRebaseMerge,
			"repository.delete_branch_on_merge": r.DeleteBranchOnMerge,
		} {
			check(path, o)
		}
	}
	if pr := b.PullRequests; pr != nil {
		for path, o := range map[string]explicitChecker{
			"pull_requests.required_reviews":          pr.RequiredReviews,
			"pull_requests.require_code_owner_review": pr.RequireCodeOwnerReview,
			"pull_requests.dismiss_stale_reviews":     pr.DismissStaleReviews,
			"pull_requests.allow_draft":               pr.AllowDraft,
		} {
			check(path, o)
		}
	}
	if bp := b.BranchProtection; bp != nil {
		for path, o := range map[string]explicitChecker{
			"branch_protection.pattern":                bp.Pattern,
			"branch_protection.required_reviews":       bp.RequiredReviews,
			"branch_protection.enforce_admins":         bp.EnforceAdmins,
			"branch_protection.require_signed_commits": bp.RequireSignedCommits,
			"branch_protection.required_checks":        bp.RequiredChecks,
			"branch_protection.restrict_pushes":        bp.RestrictPushes,
			"branch_protection.push_allowlist":         bp.PushAllowlist,
		} {
			check(path, o)
		}
	}
	if pl := b.PushLimits; pl != nil {
		for path, o := range map[string]explicitChecker{
			"push_limits.max_file_size_mb":   pl.MaxFileSizeMB,
			"push_limits.block_force_pushes": pl.BlockForcePushes,
		} {
			check(path, o)
		}
	}

	sort.Strings(out)
	return out
}

func duplicateKeyIssues(b *SettingsBlock) []Issue {
	var issues []Issue
	dup := func(field string, keys []string) {
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if seen[k] {
				issues = append(issues, Issue{SeverityError, field + "[" + k + "]", "duplicate entry"})
			}
			seen[k] = true
		}
	}

	keys := make([]string, 0, len(b.Labels))
	for _, l := range b.Labels {
		keys = append(keys, l.Name)
	}
	dup("labels", keys)

	keys = keys[:0]
	for _, w := range b.Webhooks {
		keys = append(keys, w.URL+"#"+w.Event)
	}
	dup("webhooks", keys)

	keys = keys[:0]
	for _, a := range b.Apps {
		keys = append(keys, formatAppID(a.ID))
	}
	dup("apps", keys)

	keys = keys[:0]
	for _, e := range b.Environments {
		keys = append(keys, e.Name)
	}
	dup("environments", keys)

	keys = keys[:0]
	for _, p := range b.Properties {
		keys = append(keys, p.Name)
	}
	dup("properties", keys)

	return issues
}
