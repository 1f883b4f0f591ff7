// Package logger expone el logger zap del servicio como singleton con
// scoping por contexto.
//
// Un solo Init en main configura la instancia global; el middleware de
// requests inyecta un logger con request_id y user_id vía ToContext, y
// cualquier capa lo recupera con From(ctx) sin acoplarse al transporte.
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("task submitted", logger.TaskID(id), logger.UserID(userID))
//
// Los helpers de fields.go fijan los nombres de campo del dominio
// (tenant_id, tenant_task_id, runninghub_task_id...) para que los logs
// sean consistentes entre capas.
package logger
