// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the target name is already taken; mailbox moves and
// creates refuse to overwrite existing files.
var ErrConflict = errors.New("conflict: destination already exists")
