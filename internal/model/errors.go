package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrRefused is returned when the user refuses a confirmation.
	ErrRefused = errors.New("refused")

	// ErrServer is returned when the remote side is unreachable or fails at the protocol level.
	ErrServer = errors.New("server error")
	// ErrPathNotFound is returned when a remote path does not exist.
	ErrPathNotFound = errors.New("path does not exist")
	// ErrLocalIO is returned when writing to the local disk fails.
	ErrLocalIO = errors.New("local io error")
)
