package repoforge

import (
	"reflect"
	"slices"
	"sort"
	"strconv"
)

// layered pairs a candidate override value with the layer it came from.
type layered[T any] struct {
	src Source
	val *Overridable[T]
}

// mergeScalar folds one scalar field across the governance layers, lowest
// precedence first. The override check is always made against the global
// layer's policy flag, never an intermediate layer's. A layer supplying a
// value identical to the current one is a no-op, not a violation.
func mergeScalar[T comparable](tr *SourceTrace, path string, global *Overridable[T], layers []layered[T]) (T, bool, error) {
	return mergeField(tr, path, global, layers, func(a, b T) bool { return a == b })
}

// mergeList is mergeScalar for slice-valued fields, which cannot satisfy
// comparable.
func mergeList[T comparable](tr *SourceTrace, path string, global *Overridable[[]T], layers []layered[[]T]) ([]T, bool, error) {
	return mergeField(tr, path, global, layers, slices.Equal[[]T])
}

func mergeField[T any](tr *SourceTrace, path string, global *Overridable[T], layers []layered[T], eq func(a, b T) bool) (T, bool, error) {
	var cur T
	var set bool
	overrideAllowed := true

	if global != nil {
		cur = global.Value
		set = true
		overrideAllowed = global.OverrideAllowed
		tr.Record(path, SourceGlobal)
	}

	for _, l := range layers {
		if l.val == nil {
			continue
		}
		v := l.val.Value
		if set && eq(v, cur) {
			continue
		}
		if set && !overrideAllowed {
			return cur, set, &OverrideNotAllowedError{
				Field:          path,
				AttemptedValue: v,
				AttemptedBy:    l.src,
				Policy:         "locked by organization defaults",
			}
		}
		cur = v
		set = true
		tr.Record(path, l.src)
	}

	return cur, set, nil
}

// chain builds the override candidates for one field in precedence order.
func chain[T any](repoType, team, template *Overridable[T]) []layered[T] {
	return []layered[T]{
		{SourceRepositoryType, repoType},
		{SourceTeam, team},
		{SourceTemplate, template},
	}
}

// contribution is one layer's entries for a collection field.
type contribution[T any] struct {
	src   Source
	items []T
}

// mergeCollection merges a collection field additively: the result is the
// union of all layers' entries keyed by identity. When two layers
// contribute the same identity with different attributes, the
// higher-precedence layer's attributes win; an identical contribution
// leaves the earlier layer's provenance in place.
func mergeCollection[T any](tr *SourceTrace, field string, key func(T) string, layers ...contribution[T]) map[string]T {
	out := make(map[string]T)
	for _, layer := range layers {
		for _, item := range layer.items {
			k := key(item)
			if existing, ok := out[k]; ok && reflect.DeepEqual(existing, item) {
				continue
			}
			out[k] = item
			tr.Record(field+"["+k+"]", layer.src)
		}
	}
	return out
}

func formatAppID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// sortedValues flattens a merged collection into a slice ordered by
// identity key, so repeated merges are byte-identical.
func sortedValues[T any](m map[string]T) []T {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// ResolveRepositoryType decides the effective repository type from the
// template's declaration and the user's requested override.
//
// A fixed policy rejects any contradicting override; a preferable policy
// (the default) treats the template's type as a fallback. A template with
// no type declaration leaves the decision entirely to the user, and type
// assignment is optional.
func ResolveRepositoryType(template *TemplateConfig, userOverride string) (string, error) {
	spec := template.RepositoryType
	if spec == nil {
		return userOverride, nil
	}

	if spec.Policy == TypePolicyFixed {
		if userOverride != "" && userOverride != spec.Type {
			return "", &RepositoryTypeOverrideError{
				TemplateType:      spec.Type,
				AttemptedOverride: userOverride,
				TemplateName:      template.Name,
			}
		}
		return spec.Type, nil
	}

	if userOverride != "" {
		return userOverride, nil
	}
	return spec.Type, nil
}

// Merge produces the authoritative configuration for one resolution run.
//
// Precedence is Global < RepositoryType < Team < Template. Scalar fields
// honor the global layer's override policy; any layer declaring a
// different value for a locked field fails the entire merge. Collection
// fields merge additively. Merge is a pure function: it never mutates its
// inputs and returns identical output for identical input.
//
// global and template are required; repoType and team may be nil.
func Merge(global *GlobalDefaults, repoType *RepositoryTypeConfig, team *TeamConfig, template *TemplateConfig, rctx ConfigurationContext) (*MergedConfiguration, error) {
	resolvedType, err := ResolveRepositoryType(template, rctx.RepositoryType)
	if err != nil {
		return nil, err
	}

	var rtBlock, teamBlock *SettingsBlock
	if repoType != nil {
		rtBlock = &repoType.SettingsBlock
	}
	if team != nil {
		teamBlock = &team.SettingsBlock
	}

	m := &merger{
		trace:    NewSourceTrace(),
		global:   &global.SettingsBlock,
		repoType: rtBlock,
		team:     teamBlock,
		template: &template.SettingsBlock,
	}

	out := &MergedConfiguration{
		Context:        rctx,
		RepositoryType: resolvedType,
		Trace:          m.trace,
	}

	if err := m.mergeRepository(&out.Repository); err != nil {
		return nil, err
	}
	if err := m.mergePullRequests(&out.PullRequests); err != nil {
		return nil, err
	}
	if err := m.mergeBranchProtection(&out.BranchProtection); err != nil {
		return nil, err
	}
	if err := m.mergePushLimits(&out.PushLimits); err != nil {
		return nil, err
	}
	m.mergeCollections(out)

	return out, nil
}

// merger carries the per-run trace and the four layer blocks while fields
// are folded. It only ever reads the layers.
type merger struct {
	trace    *SourceTrace
	global   *SettingsBlock
	repoType *SettingsBlock
	team     *SettingsBlock
	template *SettingsBlock
}

var (
	emptyRepo  RepositorySection
	emptyPR    PullRequestSection
	emptyBP    BranchProtectionSection
	emptyPush  PushLimitsSection
	emptyBlock SettingsBlock
)

func repoSec(b *SettingsBlock) *RepositorySection {
	if b == nil || b.Repository == nil {
		return &emptyRepo
	}
	return b.Repository
}

func prSec(b *SettingsBlock) *PullRequestSection {
	if b == nil || b.PullRequests == nil {
		return &emptyPR
	}
	return b.PullRequests
}

func bpSec(b *SettingsBlock) *BranchProtectionSection {
	if b == nil || b.BranchProtection == nil {
		return &emptyBP
	}
	return b.BranchProtection
}

func pushSec(b *SettingsBlock) *PushLimitsSection {
	if b == nil || b.PushLimits == nil {
		return &emptyPush
	}
	return b.PushLimits
}

func block(b *SettingsBlock) *SettingsBlock {
	if b == nil {
		return &emptyBlock
	}
	return b
}

func (m *merger) mergeRepository(out *MergedRepository) error {
	g := repoSec(m.global)
	rt := repoSec(m.repoType)
	tm := repoSec(m.team)
	tp := repoSec(m.template)

	var err error
	if out.Issues, _, err = mergeScalar(m.trace, "repository.issues", g.Issues, chain(rt.Issues, tm.Issues, tp.Issues)); err != nil {
		return err
	}
	if out.Wiki, _, err = mergeScalar(m.trace, "repository.wiki", g.Wiki, chain(rt.Wiki, tm.Wiki, tp.Wiki)); err != nil {
		return err
	}
	if out.Projects, _, err = mergeScalar(m.trace, "repository.projects", g.Projects, chain(rt.Projects, tm.Projects, tp.Projects)); err != nil {
		return err
	}
	if out.Discussions, _, err = mergeScalar(m.trace, "repository.discussions", g.Discussions, chain(rt.Discussions, tm.Discussions, tp.Discussions)); err != nil {
		return err
	}
	if out.Visibility, _, err = mergeScalar(m.trace, "repository.visibility", g.Visibility, chain(rt.Visibility, tm.Visibility, tp.Visibility)); err != nil {
		return err
	}
	if out.DefaultBranch, _, err = mergeScalar(m.trace, "repository.default_branch", g.DefaultBranch, chain(rt.DefaultBranch, tm.DefaultBranch, tp.DefaultBranch)); err != nil {
		return err
	}
	if out.AllowSquashMerge, _, err = mergeScalar(m.trace, "repository.allow_squash_merge", g.AllowSquashMerge, chain(rt.AllowSquashMerge, tm.AllowSquashMerge, tp.AllowSquashMerge)); err != nil {
		return err
	}
	if out.AllowMergeCommit, _, err = mergeScalar(m.trace, "repository.allow_merge_commit", g.AllowMergeCommit, chain(rt.AllowMergeCommit, tm.AllowMergeCommit, tp.AllowMergeCommit)); err != nil {
		return err
	}
	if out.AllowRebaseMerge, _, err = mergeScalar(m.trace, "repository.allow_rebase_merge", g.AllowRebaseMerge, chain(rt.AllowRebaseMerge, tm.AllowRebaseMerge, tp.AllowRebaseMerge)); err != nil {
		return err
	}
	if out.DeleteBranchOnMerge, _, err = mergeScalar(m.trace, "repository.delete_branch_on_merge", g.DeleteBranchOnMerge, chain(rt.DeleteBranchOnMerge, tm.DeleteBranchOnMerge, tp.DeleteBranchOnMerge)); err != nil {
		return err
	}
	return nil
}

func (m *merger) mergePullRequests(out *MergedPullRequests) error {
	g := prSec(m.global)
	rt := prSec(m.repoType)
	tm := prSec(m.team)
	tp := prSec(m.template)

	var err error
	if out.RequiredReviews, _, err = mergeScalar(m.trace, "pull_requests.required_reviews", g.RequiredReviews, chain(rt.RequiredReviews, tm.RequiredReviews, tp.RequiredReviews)); err != nil {
		return err
	}
	if out.RequireCodeOwnerReview, _, err = mergeScalar(m.trace, "pull_requests.require_code_owner_review", g.RequireCodeOwnerReview, chain(rt.RequireCodeOwnerReview, tm.RequireCodeOwnerReview, tp.RequireCodeOwnerReview)); err != nil {
		return err
	}
	if out.DismissStaleReviews, _, err = mergeScalar(m.trace, "pull_requests.dismiss_stale_reviews", g.DismissStaleReviews, chain(rt.DismissStaleReviews, tm.DismissStaleReviews, tp.DismissStaleReviews)); err != nil {
		return err
	}
	if out.AllowDraft, _, err = mergeScalar(m.trace, "pull_requests.allow_draft", g.AllowDraft, chain(rt.AllowDraft, tm.AllowDraft, tp.AllowDraft)); err != nil {
		return err
	}
	return nil
}

func (m *merger) mergeBranchProtection(out *MergedBranchProtection) error {
	g := bpSec(m.global)
	rt := bpSec(m.repoType)
	tm := bpSec(m.team)
	tp := bpSec(m.template)

	var err error
	if out.Pattern, _, err = mergeScalar(m.trace, "branch_protection.pattern", g.Pattern, chain(rt.Pattern, tm.Pattern, tp.Pattern)); err != nil {
		return err
	}
	if out.RequiredReviews, _, err = mergeScalar(m.trace, "branch_protection.required_reviews", g.RequiredReviews, chain(rt.RequiredReviews, tm.RequiredReviews, tp.RequiredReviews)); err != nil {
		return err
	}
	if out.EnforceAdmins, _, err = mergeScalar(m.trace, "branch_protection.enforce_admins", g.EnforceAdmins, chain(rt.EnforceAdmins, tm.EnforceAdmins, tp.EnforceAdmins)); err != nil {
		return err
	}
	if out.RequireSignedCommits, _, err = mergeScalar(m.trace, "branch_protection.require_signed_commits", g.RequireSignedCommits, chain(rt.RequireSignedCommits, tm.RequireSignedCommits, tp.RequireSignedCommits)); err != nil {
		return err
	}
	if out.RequiredChecks, _, err = mergeList(m.trace, "branch_protection.required_checks", g.RequiredChecks, chain(rt.RequiredChecks, tm.RequiredChecks, tp.RequiredChecks)); err != nil {
		return err
	}
	if out.RestrictPushes, _, err = mergeScalar(m.trace, "branch_protection.restrict_pushes", g.RestrictPushes, chain(rt.RestrictPushes, tm.RestrictPushes, tp.RestrictPushes)); err != nil {
		return err
	}
	if out.PushAllowlist, _, err = mergeList(m.trace, "branch_protection.push_allowlist", g.PushAllowlist, chain(rt.PushAllowlist, tm.PushAllowlist, tp.PushAllowlist)); err != nil {
		return err
	}
	return nil
}

func (m *merger) mergePushLimits(out *MergedPushLimits) error {
	g := pushSec(m.global)
	rt := pushSec(m.repoType)
	tm := pushSec(m.team)
	tp := pushSec(m.template)

	var err error
	if out.MaxFileSizeMB, _, err = mergeScalar(m.trace, "push_limits.max_file_size_mb", g.MaxFileSizeMB, chain(rt.MaxFileSizeMB, tm.MaxFileSizeMB, tp.MaxFileSizeMB)); err != nil {
		return err
	}
	if out.BlockForcePushes, _, err = mergeScalar(m.trace, "push_limits.block_force_pushes", g.BlockForcePushes, chain(rt.BlockForcePushes, tm.BlockForcePushes, tp.BlockForcePushes)); err != nil {
		return err
	}
	return nil
}

func (m *merger) mergeCollections(out *MergedConfiguration) {
	g := block(m.global)
	rt := block(m.repoType)
	tm := block(m.team)
	tp := block(m.template)

	out.Labels = mergeCollection(m.trace, "labels",
		func(l LabelConfig) string { return l.Name },
		contribution[LabelConfig]{SourceGlobal, g.Labels},
		contribution[LabelConfig]{SourceRepositoryType, rt.Labels},
		contribution[LabelConfig]{SourceTeam, tm.Labels},
		contribution[LabelConfig]{SourceTemplate, tp.Labels},
	)

	out.Webhooks = sortedValues(mergeCollection(m.trace, "webhooks",
		func(w WebhookConfig) string { return w.URL + "#" + w.Event },
		contribution[WebhookConfig]{SourceGlobal, g.Webhooks},
		contribution[WebhookConfig]{SourceRepositoryType, rt.Webhooks},
		contribution[WebhookConfig]{SourceTeam, tm.Webhooks},
		contribution[WebhookConfig]{SourceTemplate, tp.Webhooks},
	))

	out.Apps = sortedValues(mergeCollection(m.trace, "apps",
		func(a AppConfig) string { return formatAppID(a.ID) },
		contribution[AppConfig]{SourceGlobal, g.Apps},
		contribution[AppConfig]{SourceRepositoryType, rt.Apps},
		contribution[AppConfig]{SourceTeam, tm.Apps},
		contribution[AppConfig]{SourceTemplate, tp.Apps},
	))

	out.Environments = sortedValues(mergeCollection(m.trace, "environments",
		func(e EnvironmentConfig) string { return e.Name },
		contribution[EnvironmentConfig]{SourceGlobal, g.Environments},
		contribution[EnvironmentConfig]{SourceRepositoryType, rt.Environments},
		contribution[EnvironmentConfig]{SourceTeam, tm.Environments},
		contribution[EnvironmentConfig]{SourceTemplate, tp.Environments},
	))

	out.Properties = sortedValues(mergeCollection(m.trace, "properties",
		func(p CustomProperty) string { return p.Name },
		contribution[CustomProperty]{SourceGlobal, g.Properties},
		contribution[CustomProperty]{SourceRepositoryType, rt.Properties},
		contribution[CustomProperty]{SourceTeam, tm.Properties},
		contribution[CustomProperty]{SourceTemplate, tp.Properties},
	))
}
