package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "principal.userID"
	ctxRoleKey   = "principal.role"
	ctxEmailKey  = "principal.email"
)
