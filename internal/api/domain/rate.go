package domain

import "errors"

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

var (
	ErrInvalidCursor = errors.New("invalid cursor")
)
