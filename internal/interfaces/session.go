package interfaces

// TokenStore holds the bearer credential used for backend requests.
// The engine reads the token on every request and clears it when the
// backend reports an expired session.
type TokenStore interface {
	// Token returns the current bearer token, or "" when no session is active
	Token() string

	// SetToken replaces the stored bearer token
	SetToken(token string)

	// Clear removes the stored bearer token
	Clear()
}

// Navigator is the navigation collaborator invoked when a session expires.
// In the admin console this redirects the user to the login page; the CLI
// implementation just reports that re-authentication is required.
type Navigator interface {
	RedirectToLogin()
}
