package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Profile struct {
	FirstName string `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName  string `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Avatar    string `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Bio       string `bson:"bio,omitempty" json:"bio,omitempty"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	Profile      Profile            `bson:"profile" json:"profile"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// Author is the display projection attached to post responses.
type Author struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Username string             `bson:"username" json:"username"`
	Profile  Profile            `bson:"profile" json:"profile"`
}

// Identity is the authenticated caller as supplied by the auth middleware.
type Identity struct {
	ID   primitive.ObjectID
	Role string
}

func (i Identity) Admin() bool {
	return i.Role == RoleAdmin
}

// CanModify reports whether the identity may mutate a post owned by author.
func (i Identity) CanModify(author primitive.ObjectID) bool {
	return i.Admin() || i.ID == author
}
