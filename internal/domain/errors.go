package domain

var (
	ErrNotFound                = errString("not found")
	ErrAlreadyExists           = errString("already exists")
	ErrInvalidDomain           = errString("invalid domain format")
	ErrInvalidService          = errString("invalid service")
	ErrInvalidCredentials      = errString("invalid credentials")
	ErrNotConfigured           = errString("source not configured")
	ErrTokenRefreshUnsupported = errString("token refresh not implemented")
)

type errString string

func (e errString) Error() string { return string(e) }
