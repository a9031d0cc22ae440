package repoforge

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func testContext(team, repoType string) ConfigurationContext {
	return ConfigurationContext{
		Organization:   "acme",
		Team:           team,
		RepositoryType: repoType,
		Template:       "go-service",
		ResolvedAt:     time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		ResolutionID:   "test-resolution",
	}
}

func TestMerge_GlobalOnly(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{
			Issues: Value(true),
			Wiki:   Locked(false),
		},
	}}
	template := &TemplateConfig{Name: "go-service"}

	merged, err := Merge(global, nil, nil, template, testContext("", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if !merged.Repository.Issues {
		t.Errorf("Issues = false, want true")
	}
	if merged.Repository.Wiki {
		t.Errorf("Wiki = true, want false")
	}
	if got := merged.Trace.Source("repository.issues"); got != SourceGlobal {
		t.Errorf("source(repository.issues) = %q, want %q", got, SourceGlobal)
	}
	if merged.Trace.Has("repository.projects") {
		t.Errorf("trace has repository.projects, want absent for unset field")
	}
}

func TestMerge_PrecedenceOrder(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		PullRequests: &PullRequestSection{RequiredReviews: Value(1)},
	}}
	repoType := &RepositoryTypeConfig{SettingsBlock: SettingsBlock{
		PullRequests: &PullRequestSection{RequiredReviews: Value(2)},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		PullRequests: &PullRequestSection{RequiredReviews: Value(3)},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		PullRequests: &PullRequestSection{RequiredReviews: Value(4)},
	}}

	merged, err := Merge(global, repoType, team, template, testContext("platform", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got := merged.PullRequests.RequiredReviews; got != 4 {
		t.Errorf("RequiredReviews = %d, want 4 (template wins)", got)
	}
	if got := merged.Trace.Source("pull_requests.required_reviews"); got != SourceTemplate {
		t.Errorf("source = %q, want %q", got, SourceTemplate)
	}
}

func TestMerge_TeamOutranksRepositoryType(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{DefaultBranch: Value("main")},
	}}
	repoType := &RepositoryTypeConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{DefaultBranch: Value("trunk")},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{DefaultBranch: Value("develop")},
	}}
	template := &TemplateConfig{Name: "go-service"}

	merged, err := Merge(global, repoType, team, template, testContext("platform", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got := merged.Repository.DefaultBranch; got != "develop" {
		t.Errorf("DefaultBranch = %q, want %q", got, "develop")
	}
	if got := merged.Trace.Source("repository.default_branch"); got != SourceTeam {
		t.Errorf("source = %q, want %q", got, SourceTeam)
	}
}

func TestMerge_OverrideNotAllowed(t *testing.T) {
	// Wiki is locked false globally; the team sets true.
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{
			Issues: Value(true),
			Wiki:   Locked(false),
		},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Wiki: Value(true)},
	}}
	template := &TemplateConfig{Name: "go-service"}

	_, err := Merge(global, nil, team, template, testContext("platform", ""))

	var ona *OverrideNotAllowedError
	if !errors.As(err, &ona) {
		t.Fatalf("Merge() error = %v, want *OverrideNotAllowedError", err)
	}
	if ona.Field != "repository.wiki" {
		t.Errorf("Field = %q, want %q", ona.Field, "repository.wiki")
	}
	if ona.AttemptedBy != SourceTeam {
		t.Errorf("AttemptedBy = %q, want %q", ona.AttemptedBy, SourceTeam)
	}
	if !IsPolicyViolation(err) {
		t.Errorf("IsPolicyViolation = false, want true")
	}
}

func TestMerge_NoOpOverrideIsNotViolation(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Wiki: Locked(false)},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Wiki: Value(false)},
	}}
	template := &TemplateConfig{Name: "go-service"}

	merged, err := Merge(global, nil, team, template, testContext("platform", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v, want nil for identical value", err)
	}
	if got := merged.Trace.Source("repository.wiki"); got != SourceGlobal {
		t.Errorf("source = %q, want %q (no-op override keeps provenance)", got, SourceGlobal)
	}
}

func TestMerge_OverrideCheckAgainstOriginalGlobalFlag(t *testing.T) {
	// The repository-type layer matching the locked global value must not
	// re-open the field for the team layer.
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Visibility: Locked("private")},
	}}
	repoType := &RepositoryTypeConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Visibility: Value("private")},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Visibility: Value("public")},
	}}
	template := &TemplateConfig{Name: "go-service"}

	_, err := Merge(global, repoType, team, template, testContext("platform", ""))

	var ona *OverrideNotAllowedError
	if !errors.As(err, &ona) {
		t.Fatalf("Merge() error = %v, want *OverrideNotAllowedError", err)
	}
	if ona.Field != "repository.visibility" {
		t.Errorf("Field = %q, want %q", ona.Field, "repository.visibility")
	}
}

func TestMerge_FieldAbsentFromGlobal(t *testing.T) {
	// A field the organization never declares carries no policy; layers
	// may set and override it freely.
	global := &GlobalDefaults{}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Discussions: Value(true)},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Discussions: Value(false)},
	}}

	merged, err := Merge(global, nil, team, template, testContext("platform", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if merged.Repository.Discussions {
		t.Errorf("Discussions = true, want false (template wins)")
	}
	if got := merged.Trace.Source("repository.discussions"); got != SourceTemplate {
		t.Errorf("source = %q, want %q", got, SourceTemplate)
	}
}

func TestMerge_AdditiveLabels(t *testing.T) {
	// The duplicate bug label collapses; the union is preserved.
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Labels: []LabelConfig{{Name: "bug", Color: "#d73a4a"}},
	}}
	repoType := &RepositoryTypeConfig{SettingsBlock: SettingsBlock{
		Labels: []LabelConfig{{Name: "triage", Color: "#fbca04"}},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		Labels: []LabelConfig{{Name: "bug", Color: "#d73a4a"}},
	}}

	merged, err := Merge(global, repoType, nil, template, testContext("", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if len(merged.Labels) != 2 {
		t.Fatalf("len(Labels) = %d, want 2", len(merged.Labels))
	}
	if got := merged.Labels["bug"].Color; got != "#d73a4a" {
		t.Errorf("bug color = %q, want %q", got, "#d73a4a")
	}
	if got := merged.Labels["triage"].Color; got != "#fbca04" {
		t.Errorf("triage color = %q, want %q", got, "#fbca04")
	}
	// Identical duplicate keeps the first contributor's provenance.
	if got := merged.Trace.Source("labels[bug]"); got != SourceGlobal {
		t.Errorf("source(labels[bug]) = %q, want %q", got, SourceGlobal)
	}
}

func TestMerge_CollectionAttributesLastWriteWins(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Webhooks: []WebhookConfig{{URL: "https://ci.example.com/hooks", Event: "push", ContentType: "form"}},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Webhooks: []WebhookConfig{{URL: "https://ci.example.com/hooks", Event: "push", ContentType: "json"}},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		Webhooks: []WebhookConfig{{URL: "https://deploy.example.com/hooks", Event: "release"}},
	}}

	merged, err := Merge(global, nil, team, template, testContext("platform", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if len(merged.Webhooks) != 2 {
		t.Fatalf("len(Webhooks) = %d, want 2", len(merged.Webhooks))
	}
	for _, w := range merged.Webhooks {
		if w.URL == "https://ci.example.com/hooks" && w.ContentType != "json" {
			t.Errorf("ci hook content type = %q, want %q (team attributes win)", w.ContentType, "json")
		}
	}
	if got := merged.Trace.Source("webhooks[https://ci.example.com/hooks#push]"); got != SourceTeam {
		t.Errorf("source = %q, want %q", got, SourceTeam)
	}
}

func TestMerge_AdditiveEnvironmentsAndApps(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Apps: []AppConfig{{ID: 1001, Slug: "compliance-bot"}},
	}}
	repoType := &RepositoryTypeConfig{SettingsBlock: SettingsBlock{
		Environments: []EnvironmentConfig{{Name: "production", WaitTimer: 30}},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		Apps:         []AppConfig{{ID: 2002, Slug: "deploy-bot"}},
		Environments: []EnvironmentConfig{{Name: "staging"}},
	}}

	merged, err := Merge(global, repoType, nil, template, testContext("", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if len(merged.Apps) != 2 {
		t.Errorf("len(Apps) = %d, want 2", len(merged.Apps))
	}
	if len(merged.Environments) != 2 {
		t.Errorf("len(Environments) = %d, want 2", len(merged.Environments))
	}
}

func TestMerge_Deterministic(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Issues: Value(true), DefaultBranch: Value("main")},
		Labels: []LabelConfig{
			{Name: "bug", Color: "#d73a4a"},
			{Name: "docs", Color: "#0075ca"},
		},
		Webhooks: []WebhookConfig{
			{URL: "https://b.example.com", Event: "push"},
			{URL: "https://a.example.com", Event: "push"},
		},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Labels: []LabelConfig{{Name: "team-owned", Color: "#0e8a16"}},
	}}
	template := &TemplateConfig{Name: "go-service"}
	rctx := testContext("platform", "")

	first, err := Merge(global, nil, team, template, rctx)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := Merge(global, nil, team, template, rctx)
		if err != nil {
			t.Fatalf("Merge() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("repeated Merge() produced different results")
		}
	}

	// Sorted slice output is part of the determinism contract.
	if first.Webhooks[0].URL != "https://a.example.com" {
		t.Errorf("Webhooks[0].URL = %q, want sorted order", first.Webhooks[0].URL)
	}
}

func TestMerge_RequiredChecksListOverride(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		BranchProtection: &BranchProtectionSection{
			RequiredChecks: Value([]string{"build"}),
		},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		BranchProtection: &BranchProtectionSection{
			RequiredChecks: Value([]string{"build", "test"}),
		},
	}}

	merged, err := Merge(global, nil, nil, template, testContext("", ""))
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := []string{"build", "test"}
	if !reflect.DeepEqual(merged.BranchProtection.RequiredChecks, want) {
		t.Errorf("RequiredChecks = %v, want %v", merged.BranchProtection.RequiredChecks, want)
	}
	if got := merged.Trace.Source("branch_protection.required_checks"); got != SourceTemplate {
		t.Errorf("source = %q, want %q", got, SourceTemplate)
	}
}

func TestMerge_LockedListRejectsDifferentList(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		BranchProtection: &BranchProtectionSection{
			RequiredChecks: Locked([]string{"build"}),
		},
	}}
	template := &TemplateConfig{SettingsBlock: SettingsBlock{
		BranchProtection: &BranchProtectionSection{
			RequiredChecks: Value([]string{"lint"}),
		},
	}}

	_, err := Merge(global, nil, nil, template, testContext("", ""))
	var ona *OverrideNotAllowedError
	if !errors.As(err, &ona) {
		t.Fatalf("Merge() error = %v, want *OverrideNotAllowedError", err)
	}
}

func TestResolveRepositoryType(t *testing.T) {
	tests := []struct {
		name     string
		spec     *RepositoryTypeSpec
		override string
		want     string
		wantErr  bool
	}{
		{
			name: "fixed without override",
			spec: &RepositoryTypeSpec{Type: "library", Policy: TypePolicyFixed},
			want: "library",
		},
		{
			name:     "fixed with matching override",
			spec:     &RepositoryTypeSpec{Type: "library", Policy: TypePolicyFixed},
			override: "library",
			want:     "library",
		},
		{
			name:     "fixed with contradicting override",
			spec:     &RepositoryTypeSpec{Type: "library", Policy: TypePolicyFixed},
			override: "service",
			wantErr:  true,
		},
		{
			name: "preferable without override",
			spec: &RepositoryTypeSpec{Type: "service", Policy: TypePolicyPreferable},
			want: "service",
		},
		{
			name:     "preferable with override",
			spec:     &RepositoryTypeSpec{Type: "service", Policy: TypePolicyPreferable},
			override: "utility",
			want:     "utility",
		},
		{
			name: "no spec without override",
			want: "",
		},
		{
			name:     "no spec with override",
			override: "service",
			want:     "service",
		},
		{
			name:     "unset policy defaults to preferable",
			spec:     &RepositoryTypeSpec{Type: "service"},
			override: "utility",
			want:     "utility",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template := &TemplateConfig{Name: "tmpl", RepositoryType: tt.spec}
			got, err := ResolveRepositoryType(template, tt.override)
			if tt.wantErr {
				var rto *RepositoryTypeOverrideError
				if !errors.As(err, &rto) {
					t.Fatalf("error = %v, want *RepositoryTypeOverrideError", err)
				}
				if rto.TemplateType != tt.spec.Type {
					t.Errorf("TemplateType = %q, want %q", rto.TemplateType, tt.spec.Type)
				}
				if rto.AttemptedOverride != tt.override {
					t.Errorf("AttemptedOverride = %q, want %q", rto.AttemptedOverride, tt.override)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolved type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	global := &GlobalDefaults{SettingsBlock: SettingsBlock{
		Repository: &RepositorySection{Issues: Value(true)},
		Labels:     []LabelConfig{{Name: "bug", Color: "#d73a4a"}},
	}}
	team := &TeamConfig{SettingsBlock: SettingsBlock{
		Labels: []LabelConfig{{Name: "bug", Color: "#ffffff"}},
	}}
	template := &TemplateConfig{Name: "go-service"}

	before := global.Labels[0]
	if _, err := Merge(global, nil, team, template, testContext("platform", "")); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if global.Labels[0] != before {
		t.Errorf("Merge mutated global labels: %+v", global.Labels[0])
	}
}
