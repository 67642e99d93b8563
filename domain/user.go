package domain

// User is the identity view the core needs for routing and notifications.
// Credentials and roles live in the repository layer.
type User struct {
	ID    string
	Email string
}
