/*
Package sessionmux routes session reads and writes across Redis backends and moves live
session traffic from one backend topology to another without losing in-flight sessions.

# Concept

A deployment has a "default" store and, while a migration is planned, an "alternative"
store. Each store is a single Redis endpoint, a sentinel group, or a weighted pool of
shards; a key is routed to a shard from its first four bytes, without any coordination.

The migration coordinator decides per request which store serves a key:

  - drop_original_store on: the alternative store serves everything.
  - migration_mode off: the current store serves everything; a migration that was in
    progress is completed by swapping the two roles.
  - migration_mode on: keys that already exist in the current store stay there, new
    sessions land on the alternative store.

Payloads are stored as base64(hex(HMAC-SHA256) ":" serialized), and every read verifies
the tag. Reads that fail for any reason yield a fresh anonymous session.

# Usage

	cfg, err := config.Load("sessionmux.yaml", "")
	if err != nil {
		log.Fatal(err)
	}

	mux, err := sessionmux.New(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer mux.Close()

	s, err := mux.Update(ctx, cookieValue, func(s *session.Session) error {
		s.Set(ctx, "user_id", 42)
		return nil
	})
	// s.Key() is the key to send back to the client.

# Sharing the migration state

Set migration.state_backend to persist the coordinator state in Redis. Every transition
is then a compare-and-swap on a generation number, so several processes agree on which
store is current; run Mux.Watch to pick up toggles flipped elsewhere.
*/
package sessionmux
