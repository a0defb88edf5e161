// Package redis connects to Redis and provides a Redis-backed store for
// update deduplication.
//
// Connect retries the initial ping according to Config, whose fields load
// from REDIS_* environment variables. DedupStore satisfies
// tgwebhook.DedupStore and lets several replicas behind one webhook URL skip
// updates that any of them has already handled:
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	app, err := tgwebhook.New(opts,
//		tgwebhook.WithDedupStore(redis.NewDedupStore(client, redis.WithTTL(cfg.DedupTTL))),
//		tgwebhook.WithReadinessCheck(redis.Healthcheck(client)),
//	)
//
// Errors are joined with the package sentinels (ErrRedisNotReady, ErrDedup
// and so on) and match them with errors.Is.
package redis
