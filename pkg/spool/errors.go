package spool

import "errors"

var (
	// ErrClosed is returned by Write and Recall on a sink that was closed
	// before entering forwarding mode.
	ErrClosed = errors.New("sink is closed")

	// ErrResourceExists is returned when the backing resource cannot be
	// created because its target already exists.
	ErrResourceExists = errors.New("backing resource already exists")
)
