package sentinel

import "errors"

// Sentinel errors for storage facts. Store backends return these, optionally
// wrapped, and the consent manager decides how to degrade:
//   - ErrNotFound: nothing persisted under the key
//   - ErrUnavailable: the backend cannot be reached or is not ready
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
