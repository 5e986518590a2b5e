// Package domain holds the persisted passcode model.
package domain

import "time"

// Type is the flow a passcode is issued for.
type Type string

const (
	TypeSignIn         Type = "SignIn"
	TypeRegister       Type = "Register"
	TypeForgotPassword Type = "ForgotPassword"
)

// Valid reports whether t is a known flow type.
func (t Type) Valid() bool {
	switch t {
	case TypeSignIn, TypeRegister, TypeForgotPassword:
		return true
	}
	return false
}

// Passcode is one issued code, scoped to an interaction session (JTI) and a
// flow type. Exactly one of Email and Phone is set. CodeHash is the SHA-256
// hex of the code; the cleartext code is never stored. Superseded is set when
// a newer code is issued for the same session and flow; such records stay
// stored but can never verify.
type Passcode struct {
	ID         string
	JTI        string
	Type       Type
	Email      string
	Phone      string
	CodeHash   string
	TryCount   int
	Consumed   bool
	Superseded bool
	CreatedAt  time.Time
}

// Recipient is the delivery address a passcode is sent to. Exactly one field
// is set.
type Recipient struct {
	Email string
	Phone string
}
