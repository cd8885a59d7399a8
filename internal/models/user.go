package models

import "time"

// User is a registered account. Participants in expenses reference
// users by id; display names are snapshotted onto splits so historic
// expenses survive renames.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    int64
}

// NewUser builds an unsaved user with the creation timestamp set. The
// ID is assigned by the store.
func NewUser(email, displayName, passwordHash string) *User {
	return &User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().Unix(),
	}
}

// Group is a set of users who share expenses. Only members may record
// or view a group's expenses.
type Group struct {
	ID        int64
	Name      string
	CreatedBy int64
	// Members holds the user ids of current members, including the
	// creator.
	Members   []int64
	CreatedAt int64
}
