package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrItemNotFound       = fmt.Errorf("playlist item not found")

	// Move and sync errors
	ErrInvalidMove    = fmt.Errorf("invalid move")
	ErrIndexOutRange  = fmt.Errorf("index out of range")
	ErrTrashNotFound  = fmt.Errorf("trash entry not found")
	ErrRecordNotFound = fmt.Errorf("sync record not found")

	// Player errors
	ErrPlayerNotReady = fmt.Errorf("player not ready")
	ErrPlayerCommand  = fmt.Errorf("player command failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
