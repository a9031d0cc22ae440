package repoforge

import (
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ConfigurationContext identifies exactly one configuration-resolution run.
// It is immutable once constructed.
type ConfigurationContext struct {
	// Organization is the GitHub organization being provisioned for.
	Organization string

	// Team optionally scopes the resolution to a team's policy layer.
	Team string

	// RepositoryType is the user's requested repository type, if any.
	// Whether it takes effect depends on the template's type policy.
	RepositoryType string

	// Template names the template the repository is created from.
	Template string

	// ResolvedAt is the resolution timestamp.
	ResolvedAt time.Time

	// ResolutionID uniquely identifies this run for audit logging.
	ResolutionID string
}

// NewContext creates a context for one resolution run, stamping it with the
// current time and a fresh resolution ID.
func NewContext(org, team, repoType, template string) ConfigurationContext {
	return ConfigurationContext{
		Organization:   org,
		Team:           team,
		RepositoryType: repoType,
		Template:       template,
		ResolvedAt:     time.Now().UTC(),
		ResolutionID:   nanoid.Must(),
	}
}
