package domain

import "errors"

var (
	ErrAuth          = errors.New("authentication failed")
	ErrNotAuthorized = errors.New("not authorized")
	ErrPeerOffline   = errors.New("peer offline")
	ErrAlreadyInCall = errors.New("already in call")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence failure")
)
