package core

type ctxKey string

const (
	CtxKeyActor     ctxKey = ctxKey("actor")
	CtxKeyRequestId ctxKey = ctxKey("requestId")
)
