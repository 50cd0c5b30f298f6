package service

import "errors"

var (
	// ErrNoCardAvailable means no unused card of the requested type exists
	// right now. An expected outcome, not a fault.
	ErrNoCardAvailable = errors.New("no card of this type available")

	// ErrCardNotFound means no card exists for the given code or id
	ErrCardNotFound = errors.New("card not found")

	// ErrCardNotReserved means a confirmation targeted a card that is not
	// currently reserved (still unused, or already terminal)
	ErrCardNotReserved = errors.New("card is not reserved")

	// ErrRegistryUnavailable means the reservation registry could not be
	// read or written. Allocation fails closed on this: a card whose
	// reservation cannot be tracked is never handed out.
	ErrRegistryUnavailable = errors.New("reservation registry unavailable")
)
