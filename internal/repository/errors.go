package repository

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrReferenced          = errors.New("referenced row missing or still in use")
	ErrDuplicateTicketCode = errors.New("duplicate ticket code")
)
