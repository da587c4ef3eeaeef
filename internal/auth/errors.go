package auth

import "errors"

// Error taxonomy shared by the service and the HTTP boundary. Components
// wrap these with fmt.Errorf("%w: ...") so callers match with errors.Is
// while the client still sees a useful message.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyExists    = errors.New("already exists")
	ErrNotFound         = errors.New("not found")
)
