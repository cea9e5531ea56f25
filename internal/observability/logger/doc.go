// Package logger holds the process-wide zap logger.
//
// Init is called once from main. Request-scoped loggers carrying request_id and
// friends travel on the context; From falls back to the singleton when none is set.
//
//	logger.Init(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})
//	defer logger.Sync()
//
//	logger.From(ctx).Info("drink created", logger.DrinkID(id))
package logger
