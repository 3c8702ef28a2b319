// Package repository holds the persistence layer.  The sentinel errors
// below let handlers tell read failures from write failures without
// inspecting file-system detail, which is logged but never returned to
// callers of the HTTP API.
package repository

import "errors"

// ErrStoreRead is returned when the visitor file is missing, unreadable or
// does not contain a JSON array.
var ErrStoreRead = errors.New("visitor store read failed")

// ErrStoreWrite is returned when the visitor file or an archive cannot be
// written.
var ErrStoreWrite = errors.New("visitor store write failed")
