// Package logger provee un singleton de zap para toda la aplicación,
// con helpers de campos tipados y propagación por contexto.
//
// Uso típico:
//
//	logger.Init(logger.Config{Env: "prod", Level: "info", ServiceName: "vitrina"})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("auth.login"))
//	log.Info("login ok", logger.UserID(id))
package logger
