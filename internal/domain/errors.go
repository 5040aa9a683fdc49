package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrPaymentTerminal    = errors.New("payment already in terminal state")
	ErrDuplicateEvent     = errors.New("event already processed")
	ErrDuplicateReference = errors.New("payment reference already exists")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
)
