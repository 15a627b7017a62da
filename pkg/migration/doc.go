/*
Package migration routes session keys between a "current" and an "alternative" store
while traffic is moved from one backend topology to the other.

Rules, evaluated in order for every request:

 1. drop_original_store set: the alternative store serves everything.
 2. migration_mode off: the current store serves everything. If a migration was in
    progress, the roles are swapped first (cutover), exactly once.
 3. migration_mode on: keys that exist in the current store stay there; new keys go to
    the alternative store and the phase becomes MIGRATING.

The state lives in the Coordinator. With a ports.MigrationStateStore attached, every
transition is a compare-and-swap on the persisted generation, so processes sharing the
store agree on which backend is current.
*/
package migration
