package context

import (
	"context"

	"github.com/julienschmidt/httprouter"
	"hooklens/internal/platform/auth"
)

type Key string

const (
	Claims    Key = "claims"
	Params    Key = "params"
	RequestID Key = "request_id"
)

func ClaimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(Claims).(*auth.Claims)
	return claims, ok && claims != nil
}

func ParamsFrom(ctx context.Context) httprouter.Params {
	ps, _ := ctx.Value(Params).(httprouter.Params)
	return ps
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestID).(string)
	return id
}
