/*
Package backend turns a logical description of a session backend into live Redis handles.

It covers three concerns:

  - Descriptors and pools: passive values describing one endpoint (host/port, URL or
    unix socket) and an ordered, weighted list of them.
  - Shard selection: a pure function mapping a session key onto one pool member. The
    first four bytes of the key are read as an unsigned integer and reduced modulo the
    total weight, so every process routes the same key to the same shard without any
    coordination.
  - Connection dispatch and caching: each store has a Topology that resolves a key to a
    Location (identity + connection variant). The Cache memoizes one go-redis client per
    identity for the lifetime of the process.

Building a client never performs a network round trip; connection errors surface on
first use.
*/
package backend
