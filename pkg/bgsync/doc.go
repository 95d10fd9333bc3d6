// Package bgsync queues local watchlist changes and forwards them to a
// remote endpoint when connectivity returns.
//
// Mutations are stored in SQLite (WAL mode) in insertion order. A sync
// event tagged "watchlist-sync" drains the queue: each mutation is POSTed
// with its ID as Idempotency-Key and removed on success. Delivery is at
// least once; deduplication is left to the receiver.
//
//	queue, _ := bgsync.Open("/var/lib/flix/sync.db")
//	defer queue.Close()
//
//	queue.Enqueue(ctx, bgsync.NewMutation(bgsync.KindAdd, "movie", 550, nil))
//
//	syncer := bgsync.NewSyncer(queue, bgsync.NewHTTPForwarder(endpoint, nil, ua), logger)
//	report, err := syncer.HandleSync(ctx, bgsync.TagWatchlist)
package bgsync
