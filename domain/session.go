package domain

// Session identifies one live client connection. Room memberships are not
// stored here: the registry owns the session↔room mapping in both directions
// so that entities never hold mutable back-references to each other.
type Session struct {
	ID     string
	UserID string
}
