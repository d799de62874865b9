package caom

import "fmt"

// ValidationError reports an entity that would violate the CAOM model.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("caom: invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("caom: invalid %s %s: %s", e.Entity, e.Field, e.Reason)
}

// CollisionError reports two distinct URIs that shorten to the same name.
type CollisionError struct {
	Short    string
	Existing string
	URI      string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("caom: %q and %q both shorten to %q", e.Existing, e.URI, e.Short)
}
