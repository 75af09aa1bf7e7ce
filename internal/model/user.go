package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account created through invite signup. The handle is stable
// and lowercase; the pipeline treats everything else as opaque.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	InviteCode   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Invite is a charge-limited signup code.
type Invite struct {
	Code           string `json:"code"`
	InitialCharges int    `json:"initial_charges"`
	UsedCharges    int    `json:"used_charges"`
}

// Exhausted reports whether the invite has no charges left.
func (i Invite) Exhausted() bool {
	return i.UsedCharges >= i.InitialCharges
}

// Recipe is one free-form recipe submission.
type Recipe struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}
