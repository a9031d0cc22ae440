package repoforge

import (
	"errors"
	"fmt"
)

// Metadata repository errors
var (
	// ErrMetadataRepositoryNotFound indicates the organization has no
	// discoverable configuration repository.
	ErrMetadataRepositoryNotFound = errors.New("metadata repository not found")

	// ErrMetadataRepositoryStructureInvalid indicates the configuration
	// repository is missing required directories or files.
	ErrMetadataRepositoryStructureInvalid = errors.New("metadata repository structure invalid")

	// ErrLayerNotFound indicates a requested layer document does not exist.
	ErrLayerNotFound = errors.New("layer document not found")
)

// OverrideNotAllowedError indicates a lower-priority layer attempted to
// change a field the organization has locked.
//
// The Error text names only the rule and field; the attempted value and
// source layer are retained on the struct for audit logging by the caller.
type OverrideNotAllowedError struct {
	Field          string // Field path (e.g., "repository.wiki")
	AttemptedValue any    // Value the offending layer declared
	AttemptedBy    Source // Layer that attempted the override
	Policy         string // Human-readable policy description
}

func (e *OverrideNotAllowedError) Error() string {
	return fmt.Sprintf("organization policy forbids overriding %s", e.Field)
}

// RepositoryTypeOverrideError indicates a user override contradicts a
// template whose repository-type policy is fixed.
type RepositoryTypeOverrideError struct {
	TemplateType      string // Type declared by the template
	AttemptedOverride string // Type the user requested
	TemplateName      string // Template that declared the fixed type
}

func (e *RepositoryTypeOverrideError) Error() string {
	return fmt.Sprintf("template %q fixes the repository type and does not permit an override", e.TemplateName)
}

// RepositoryTypeNotFoundError indicates the resolved repository type has no
// configuration in the metadata repository.
type RepositoryTypeNotFoundError struct {
	RepoType string
}

func (e *RepositoryTypeNotFoundError) Error() string {
	return fmt.Sprintf("repository type %q not found", e.RepoType)
}

// SchemaViolationError indicates a layer document failed structural
// validation.
type SchemaViolationError struct {
	File    string // Document path within the metadata repository
	Field   string // Offending field, if identifiable
	Message string // What was wrong
}

func (e *SchemaViolationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema violation in %s: field %s: %s", e.File, e.Field, e.Message)
	}
	return fmt.Sprintf("schema violation in %s: %s", e.File, e.Message)
}

// ValidationError indicates business-rule validation failed for a layer
// document or a merged configuration.
type ValidationError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LoadError wraps a provider failure with the layer it occurred on.
type LoadError struct {
	Layer Source // Layer being loaded
	Name  string // Team, type, or template name (empty for global)
	Err   error  // Underlying provider error
}

func (e *LoadError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("load %s layer %q: %v", e.Layer, e.Name, e.Err)
	}
	return fmt.Sprintf("load %s layer: %v", e.Layer, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsPolicyViolation reports whether err is an override-policy or
// repository-type-policy violation. Policy violations are deterministic for
// a given set of layer documents and must not be retried.
func IsPolicyViolation(err error) bool {
	var ona *OverrideNotAllowedError
	var rto *RepositoryTypeOverrideError
	return errors.As(err, &ona) || errors.As(err, &rto)
}

// IsSchemaError reports whether err is a schema or validation failure.
// Like policy violations, these are deterministic and not retryable.
func IsSchemaError(err error) bool {
	var sv *SchemaViolationError
	var ve *ValidationError
	return errors.As(err, &sv) || errors.As(err, &ve)
}

// IsNotFound reports whether err indicates a missing repository, layer, or
// repository type.
func IsNotFound(err error) bool {
	var rtnf *RepositoryTypeNotFoundError
	return errors.Is(err, ErrMetadataRepositoryNotFound) ||
		errors.Is(err, ErrLayerNotFound) ||
		errors.As(err, &rtnf)
}

// isLayerNotFound reports whether a provider fetch failed because the
// document does not exist, as opposed to a transport failure.
func isLayerNotFound(err error) bool {
	return errors.Is(err, ErrLayerNotFound)
}

// IsRetryable reports whether err may succeed on retry. Load failures that
// are not policy, schema, or not-found errors are assumed transient
// (provider unreachable, rate limited); the caller owns the retry decision.
func IsRetryable(err error) bool {
	var le *LoadError
	if !errors.As(err, &le) {
		return false
	}
	return !IsPolicyViolation(err) && !IsSchemaError(err) && !IsNotFound(err)
}
