package core

// SessionID identifies one transport connection. It changes on every reconnect,
// unlike domain.UserID.
type SessionID string
