package poc

import "errors"

// Sentinel errors for POC loading and validation.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidPOC indicates a POC file parsed but is not usable.
	ErrInvalidPOC = errors.New("poc: invalid definition")

	// ErrNoPOCs indicates a directory contained no loadable POC files.
	ErrNoPOCs = errors.New("poc: no valid POC files found")
)
