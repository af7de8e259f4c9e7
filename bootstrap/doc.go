// Package bootstrap runs a cachekit process: it validates the typed config,
// initializes logging, starts the registered components, runs a task and
// shuts everything down again, also on SIGINT or SIGTERM.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	app.RegisterComponent(usersClient)
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    return warmUp(ctx, usersClient)
//	})
package bootstrap
