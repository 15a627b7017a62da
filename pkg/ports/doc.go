/*
Package ports defines the driven ports (interfaces) of the session router.

These interfaces decouple the routing and session logic from concrete backends, allowing
the same Session and Coordinator code to run against Redis, an in-process store, or a
test double.

# Key Interfaces

  - SessionStore: Per-key backend operations (exists, load, save, delete) for one named store.
  - MigrationStateStore: Shared persistence of the migration state, with compare-and-swap.
  - DistributedLocker: Provides distributed locking for handling concurrent session access.
*/
package ports
