package repoforge

// Source identifies the governance layer a configuration value came from.
type Source string

// Governance layers, lowest precedence first.
const (
	// SourceGlobal is the organization-wide defaults layer. It is the only
	// layer that declares override policy.
	SourceGlobal Source = "global"

	// SourceRepositoryType is the repository-type policy layer
	// (e.g., "library", "service").
	SourceRepositoryType Source = "repository-type"

	// SourceTeam is the team policy layer.
	SourceTeam Source = "team"

	// SourceTemplate is the template policy layer. Highest precedence.
	SourceTemplate Source = "template"
)

// precedence returns the rank of a layer; higher ranks override lower ones.
func (s Source) precedence() int {
	switch s {
	case SourceGlobal:
		return 0
	case SourceRepositoryType:
		return 1
	case SourceTeam:
		return 2
	case SourceTemplate:
		return 3
	}
	return -1
}
