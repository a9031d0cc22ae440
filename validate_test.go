package repoforge

import (
	"testing"
)

func findIssue(issues []Issue, field string) (Issue, bool) {
	for _, i := range issues {
		if i.Field == field {
			return i, true
		}
	}
	return Issue{}, false
}

func TestValidateGlobalDefaults_AcceptsExplicitRecords(t *testing.T) {
	g := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Wiki: Locked(false)},
	}}
	issues := NewValidator().ValidateGlobalDefaults(g)
	if HasErrors(issues) {
		t.Errorf("ValidateGlobalDefaults() issues = %v, want none", issues)
	}
}

func TestValidateTeamConfig_RejectsExplicitRecords(t *testing.T) {
	c, err := DecodeTeamConfig([]byte(`
repository:
  wiki:
    value: true
    override_allowed: true
`))
	if err != nil {
		t.Fatalf("DecodeTeamConfig() error = %v", err)
	}

	issues := NewValidator().ValidateTeamConfig(c)
	issue, ok := findIssue(issues, "repository.wiki")
	if !ok {
		t.Fatalf("issues = %v, want repository.wiki finding", issues)
	}
	if issue.Severity != SeverityError {
		t.Errorf("Severity = %q, want %q", issue.Severity, SeverityError)
	}
}

func TestValidateTeamConfig_BareValuesPass(t *testing.T) {
	c, err := DecodeTeamConfig([]byte(`
repository:
  wiki: true
pull_requests:
  required_reviews: 3
`))
	if err != nil {
		t.Fatalf("DecodeTeamConfig() error = %v", err)
	}
	if issues := NewValidator().ValidateTeamConfig(c); HasErrors(issues) {
		t.Errorf("issues = %v, want none", issues)
	}
}

func TestValidateLayer_NegativeCounts(t *testing.T) {
	c := &TeamConfig{SettingsBlock: SettingsBlock{
		PullRequests: &PullRequestSection{RequiredReviews: Value(-1)},
		PushLimits:   &PushLimitsSection{MaxFileSizeMB: Value(-5)},
	}}
	issues := NewValidator().ValidateTeamConfig(c)
	if _, ok := findIssue(issues, "pull_requests.required_reviews"); !ok {
		t.Errorf("issues = %v, want required_reviews finding", issues)
	}
	if _, ok := findIssue(issues, "push_limits.max_file_size_mb"); !ok {
		t.Errorf("issues = %v, want max_file_size_mb finding", issues)
	}
}

func TestValidateLayer_RestrictedRequiresAllowlist(t *testing.T) {
	c := &TeamConfig{SettingsBlock: SettingsBlock{
		BranchProtection: &BranchProtectionSection{
			RestrictPushes: Value(RestrictPushesRestricted),
		},
	}}
	issues := NewValidator().ValidateTeamConfig(c)
	if _, ok := findIssue(issues, "branch_protection.restrict_pushes"); !ok {
		t.Errorf("issues = %v, want restrict_pushes finding", issues)
	}

	c.BranchProtection.PushAllowlist = Value([]string{"release-bot"})
	if issues := NewValidator().ValidateTeamConfig(c); HasErrors(issues) {
		t.Errorf("issues with allowlist = %v, want none", issues)
	}
}

func TestValidateLayer_UnknownRestrictMode(t *testing.T) {
	c := &TeamConfig{SettingsBlock: SettingsBlock{
		BranchProtection: &BranchProtectionSection{
			RestrictPushes: Value("everyone"),
		},
	}}
	issues := NewValidator().ValidateTeamConfig(c)
	if _, ok := findIssue(issues, "branch_protection.restrict_pushes"); !ok {
		t.Errorf("issues = %v, want restrict_pushes finding", issues)
	}
}

func TestValidateLayer_DuplicateCollectionEntries(t *testing.T) {
	c := &TeamConfig{SettingsBlock: SettingsBlock{
		Labels: []LabelConfig{
			{Name: "bug", Color: "#d73a4a"},
			{Name: "bug", Color: "#ffffff"},
		},
		Webhooks: []WebhookConfig{
			{URL: "https://ci.example.com", Event: "push"},
			{URL: "https://ci.example.com", Event: "push"},
		},
	}}
	issues := NewValidator().ValidateTeamConfig(c)
	if _, ok := findIssue(issues, "labels[bug]"); !ok {
		t.Errorf("issues = %v, want labels[bug] finding", issues)
	}
	if _, ok := findIssue(issues, "webhooks[https://ci.example.com#push]"); !ok {
		t.Errorf("issues = %v, want webhook duplicate finding", issues)
	}
}

func TestValidateTemplateConfig_TypeSpec(t *testing.T) {
	c := &TemplateConfig{
		Name:           "go-service",
		RepositoryType: &RepositoryTypeSpec{Type: "service", Policy: "sometimes"},
	}
	issues := NewValidator().ValidateTemplateConfig(c)
	if !HasErrors(issues) {
		t.Errorf("issues = %v, want policy finding", issues)
	}
}

func TestValidateMerged_PatternFallbackWarning(t *testing.T) {
	m := &MergedConfiguration{
		Repository:       MergedRepository{Visibility: "private", DefaultBranch: "main"},
		BranchProtection: MergedBranchProtection{EnforceAdmins: true},
		Trace:            NewSourceTrace(),
	}
	m.Trace.Record("branch_protection.enforce_admins", SourceGlobal)

	issues := NewValidator().ValidateMerged(m)
	issue, ok := findIssue(issues, "branch_protection.pattern")
	if !ok {
		t.Fatalf("issues = %v, want pattern finding", issues)
	}
	if issue.Severity != SeverityWarning {
		t.Errorf("Severity = %q, want %q (default branch available)", issue.Severity, SeverityWarning)
	}
}

func TestValidateMerged_ProtectionWithoutAnyBranch(t *testing.T) {
	m := &MergedConfiguration{
		Repository:       MergedRepository{Visibility: "private"},
		BranchProtection: MergedBranchProtection{EnforceAdmins: true},
		Trace:            NewSourceTrace(),
	}
	m.Trace.Record("branch_protection.enforce_admins", SourceGlobal)

	issues := NewValidator().ValidateMerged(m)
	issue, ok := findIssue(issues, "branch_protection.pattern")
	if !ok {
		t.Fatalf("issues = %v, want pattern finding", issues)
	}
	if issue.Severity != SeverityError {
		t.Errorf("Severity = %q, want %q", issue.Severity, SeverityError)
	}
}

func TestValidateMerged_RestrictedAllowlist(t *testing.T) {
	m := &MergedConfiguration{
		Repository: MergedRepository{Visibility: "private", DefaultBranch: "main"},
		BranchProtection: MergedBranchProtection{
			Pattern:        "main",
			RestrictPushes: RestrictPushesRestricted,
		},
		Trace: NewSourceTrace(),
	}
	issues := NewValidator().ValidateMerged(m)
	if _, ok := findIssue(issues, "branch_protection.restrict_pushes"); !ok {
		t.Errorf("issues = %v, want restrict_pushes finding", issues)
	}
}

func TestIssuesError(t *testing.T) {
	if err := IssuesError(nil); err != nil {
		t.Errorf("IssuesError(nil) = %v, want nil", err)
	}
	warn := []Issue{{SeverityWarning, "x", "heads up"}}
	if err := IssuesError(warn); err != nil {
		t.Errorf("IssuesError(warnings) = %v, want nil", err)
	}
	mixed := append(warn, Issue{SeverityError, "y", "broken"})
	err := IssuesError(mixed)
	if err == nil {
		t.Fatal("IssuesError(errors) = nil, want error")
	}
	if !IsSchemaError(err) {
		t.Errorf("IsSchemaError = false, want true")
	}
}
