// Package models defines the core data structures for registered users.
package models

// User represents an application user with credentials.
//
// Password is plaintext at the API boundary; stores decide how to persist it.
type User struct {
	// Username is the unique login name chosen by the user.
	Username string `json:"username"`
	// Password is the user's password as supplied by the client.
	Password string `json:"password"`
}

// ListedUser is the public view of a User returned by listings.
type ListedUser struct {
	// Username is the unique login name chosen by the user.
	Username string `json:"username"`
}
