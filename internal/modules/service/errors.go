package service

import (
	"errors"

	"gorm.io/gorm"
)

// Terminal claim rejections. Handlers map these onto HTTP status codes;
// anything else coming out of the services is an internal storage fault.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrProjectInactive = errors.New("project is not active")
	ErrBadPassword     = errors.New("password mismatch")
	ErrPoolExhausted   = errors.New("no cards left to claim")
	ErrRaceLost        = errors.New("claim lost the race on every attempt")
	ErrCardLocked      = errors.New("card already claimed and cannot be removed")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
