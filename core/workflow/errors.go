package workflow

import "errors"

// Sentinel errors returned by the template loader and resolver. All of them
// are configuration or template defects: fatal to the current call and never
// retried. Callers can test for them with [errors.Is] after unwrapping.
var (
	// ErrTemplateNotFound is returned by [Load] when the template file does
	// not exist at the given path.
	ErrTemplateNotFound = errors.New("comfymcp: template file not found")

	// ErrTemplateMalformed is returned by [Load] when the file cannot be
	// parsed as either template representation, even after JSON repair.
	ErrTemplateMalformed = errors.New("comfymcp: template is malformed")

	// ErrNodeNotFound is returned when an explicit node identifier is absent
	// from the template, or discovery finds no node for a role.
	ErrNodeNotFound = errors.New("comfymcp: node not found in template")

	// ErrInputNotFound is returned when a role-bound node has no input field
	// with the designated name.
	ErrInputNotFound = errors.New("comfymcp: node input not found")
)
