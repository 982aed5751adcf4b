package state

import (
	"errors"
	"fmt"
)

// Set of error variables for building transfers.
var (
	ErrZeroAmount       = errors.New("amount must be greater than zero")
	ErrInvalidSignature = errors.New("transaction signature does not verify")
)

// UnknownSenderError is returned when the sending address has no wallet.
type UnknownSenderError struct {
	Address string
	Err     error
}

// Error implements the error interface.
func (ue *UnknownSenderError) Error() string {
	return fmt.Sprintf("unknown sender %q: %s", ue.Address, ue.Err)
}

// Unwrap provides access to the lookup failure.
func (ue *UnknownSenderError) Unwrap() error {
	return ue.Err
}

// UnknownReceiverError is returned when the receiving address is not known
// to the wallet store.
type UnknownReceiverError struct {
	Address string
	Err     error
}

// Error implements the error interface.
func (ue *UnknownReceiverError) Error() string {
	return fmt.Sprintf("unknown receiver %q: %s", ue.Address, ue.Err)
}

// Unwrap provides access to the lookup failure.
func (ue *UnknownReceiverError) Unwrap() error {
	return ue.Err
}

// InsufficientFundsError is returned when the unspent outputs of the sender
// can't cover the amount.
type InsufficientFundsError struct {
	Available uint64
	Needed    uint64
}

// Error implements the error interface.
func (ie *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds, available %d, needed %d", ie.Available, ie.Needed)
}
