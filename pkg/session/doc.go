/*
Package session implements the bound/unbound session object and the manager that opens,
restores and serializes access to sessions across replicas.

A Session is pinned to the store the router picked when it was opened. It never holds a
live connection: snapshots carry only the key and the store name, and restoring one
re-resolves the store through the router.
*/
package session
