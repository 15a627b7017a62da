/*
Package domain contains the core domain models of the session router.

It defines the values shared by every layer: the session payload, the migration
state machine and the error kinds. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Payload: The logical key/value mapping stored for one session.
  - MigrationState: Which store is "current", which is "alternative", and the phase.
  - Phase: NO_MIGRATION or MIGRATING.
*/
package domain
