package domain

import "errors"

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrAlreadyExists is returned when a forced creation hits a key that is already stored.
var ErrAlreadyExists = errors.New("session key already exists")

// ErrKeyspaceExhausted is returned when key creation gave up after too many collisions.
var ErrKeyspaceExhausted = errors.New("session keyspace exhausted")

// ErrCorruptPayload is returned when a stored payload fails integrity verification
// or cannot be decoded.
var ErrCorruptPayload = errors.New("corrupt session payload")

// ErrBackendUnavailable wraps transport and timeout failures talking to a backend.
var ErrBackendUnavailable = errors.New("session backend unavailable")

// ErrConfiguration is returned for invalid static configuration.
// It is raised while building components, never while serving a request.
var ErrConfiguration = errors.New("invalid configuration")

// ErrShortKey is returned when a key is too short to be routed within a pool.
var ErrShortKey = errors.New("session key too short for shard selection")

// ErrNoMigration is returned when a cutover is requested but no migration is in progress.
var ErrNoMigration = errors.New("no migration in progress")
