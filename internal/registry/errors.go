// internal/registry/errors.go
package registry

import "errors"

var (
	// ErrPartyNotFound is returned when the party id is unknown to the registry.
	ErrPartyNotFound = errors.New("party not found")

	// ErrPartyFull is returned by Join when the party is at max size.
	ErrPartyFull = errors.New("party is full")

	// ErrAlreadyMember is returned by Join when the user is already a member.
	ErrAlreadyMember = errors.New("user is already a member of the party")

	// ErrNotMember is returned by Leave when the user is not a member.
	ErrNotMember = errors.New("user is not a member of the party")

	// ErrClosed is returned for any operation issued after Close.
	ErrClosed = errors.New("registry is closed")
)
