// Package common holds sentinel errors and small helpers shared
// across service packages.
package common

import "errors"

var (
	// ErrInvalidIdentifier means the email/phone/xmpp address failed
	// the format check (or the phone is outside country code 1).
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrIdentifierTaken means a confirmed account already claims the
	// identifier or name.
	ErrIdentifierTaken = errors.New("identifier taken")

	// ErrBlacklisted means the identifier is on an operator denylist.
	ErrBlacklisted = errors.New("identifier blacklisted")

	// ErrRateLimited means the trailing-24h issuance cap was hit for
	// the identifier or the calling IP.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnknownTarget means an invite name matched neither a user
	// nor a workgroup.
	ErrUnknownTarget = errors.New("unknown invite target")

	// ErrIncorrectCode means a submitted verification code matched no
	// issued code for the identifier.
	ErrIncorrectCode = errors.New("incorrect verification code")

	// ErrNotFound is a generic lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrNotMember means the acting user is not a member of the
	// proposal or workgroup.
	ErrNotMember = errors.New("not a member")

	// ErrInternal hides server-side failure detail from callers.
	ErrInternal = errors.New("system malfunction")
)
