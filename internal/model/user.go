package model

import (
	"time"
)

type User struct {
	ID             string    `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	PasswordDigest string    `db:"password_digest" json:"-"` // Never serialized
	DisplayName    string    `db:"display_name" json:"displayName"`
	Email          string    `db:"email" json:"email"`
	Avatar         *string   `db:"avatar" json:"avatar"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// ExternalDigest marks users whose credentials live with an external
// identity provider. It never verifies against any password.
const ExternalDigest = "external"

// Public returns the subset of the user that anyone may read.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
		CreatedAt:   u.CreatedAt,
	}
}

// Author returns the summary embedded in forum responses.
func (u *User) Author() *AuthorSummary {
	return &AuthorSummary{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Avatar:      u.Avatar,
	}
}

type PublicUser struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	Avatar      *string   `json:"avatar"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AuthorSummary struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Avatar      *string `json:"avatar"`
}

// Registration is the payload of POST /api/register.
type Registration struct {
	Username    string  `json:"username" jsonschema:"minLength=3,maxLength=32,pattern=^[A-Za-z0-9_.-]+$"`
	Password    string  `json:"password" jsonschema:"minLength=8,maxLength=128"`
	DisplayName string  `json:"displayName" jsonschema:"minLength=1,maxLength=100"`
	Email       string  `json:"email" jsonschema:"format=email,maxLength=254"`
	Avatar      *string `json:"avatar,omitempty" jsonschema:"format=uri"`
}

// Credentials is the payload of POST /api/login. Either username or email
// identifies the account.
type Credentials struct {
	Username string `json:"username,omitempty" jsonschema:"maxLength=254"`
	Email    string `json:"email,omitempty" jsonschema:"maxLength=254"`
	Password string `json:"password" jsonschema:"minLength=1,maxLength=128"`
}

// ProfileUpdate is the payload of PATCH /api/user. Nil fields are unchanged.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty" jsonschema:"minLength=1,maxLength=100"`
	Avatar      *string `json:"avatar,omitempty" jsonschema:"format=uri"`
}
