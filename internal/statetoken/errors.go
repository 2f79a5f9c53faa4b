package statetoken

import "errors"

var (
	ErrInvalidToken   = errors.New("invalid state token")
	ErrExpiredToken   = errors.New("state token has expired")
	ErrEmptyAccountID = errors.New("account id must not be empty")
	ErrWeakSecret     = errors.New("state signing secret is too short")
)
