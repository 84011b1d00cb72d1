package config

import "errors"

var (
	errConnectionClosed = errors.New("connection closed")
	errNotConnected     = errors.New("not connected")
)
