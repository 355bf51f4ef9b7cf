package triage

import "errors"

// ErrInvalidConfig marks configuration that must halt startup rather than be corrected silently.
var ErrInvalidConfig = errors.New("invalid triage configuration")
