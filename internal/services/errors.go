package services

import "errors"

var (
	// ErrOrderGone means a referenced order no longer exists at action
	// time. Surfaced to the user as "no longer available".
	ErrOrderGone = errors.New("order no longer available")

	// ErrNoPendingPayment means a payment confirmation arrived for a user
	// with no dialogue waiting at a payment step. Logged and dropped.
	ErrNoPendingPayment = errors.New("no payment-pending dialogue for user")
)

// msgStorageFailure is the generic user-facing reply for storage errors.
// The dialogue state is left unchanged so the user can simply retry.
const msgStorageFailure = "Something went wrong on our side. Please try again in a moment."
