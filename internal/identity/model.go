package identity

// Credentials is what a user presents to log in.
type Credentials struct {
	UserID string
	PIN    string
}
