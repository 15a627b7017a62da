package cli

import (
	"context"
	"fmt"
)

// Shard prints where key lives in every store and which store the coordinator would
// pick for it.
func Shard(ctx context.Context, opts Options, key string) error {
	mux, _, _, err := openMux(ctx, opts)
	if err != nil {
		return err
	}
	defer mux.Close()

	w := opts.out()
	for _, store := range mux.Stores() {
		loc, err := store.Locate(key)
		if err != nil {
			fmt.Fprintf(w, "%s: %v\n", store.Name(), err)
			continue
		}
		fmt.Fprintf(w, "%s: shard=%d identity=%s\n", store.Name(), loc.Shard, loc.Identity)
	}

	d := mux.Coordinator().Explain(ctx, key)
	fmt.Fprintf(w, "route: %s (%s)\n", d.Store, d.Rule)
	return nil
}
