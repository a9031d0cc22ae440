// Package repoforge resolves hierarchical repository-provisioning
// configuration for GitHub organizations.
//
// Settings may be declared at four governance layers: organization-wide
// defaults, repository-type policy, team policy, and template policy.
// The resolution engine loads each layer from the organization's metadata
// repository, merges them under the precedence
//
//	Global < RepositoryType < Team < Template
//
// enforces the organization's override policy (a field the organization
// locks can never be changed by a lower layer), and records per-field
// provenance for auditing.
//
// The package is organized as:
//
//   - repoforge (root): layer document types, the merge engine, the
//     validator, the GitHub/GitLab metadata providers, and the Manager
//     facade
//   - cache: TTL-bounded layer-document cache with scoped invalidation
//   - auth: GitHub App token minting for the metadata provider
//   - testutil: layer-document fixtures for tests
//
// # Quick Start
//
//	provider, _ := repoforge.NewGitHubProvider(repoforge.GitHubProviderConfig{
//	    Token: token,
//	})
//	mgr, _ := repoforge.NewManager(repoforge.ManagerConfig{
//	    Provider: provider,
//	})
//
//	rctx := repoforge.NewContext("acme", "platform-team", "", "go-service")
//	merged, err := mgr.Resolve(ctx, rctx)
//
// See individual package documentation for detailed usage.
package repoforge
