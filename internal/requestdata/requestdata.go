package requestdata

import (
	"context"

	"github.com/google/uuid"
)

var requestDataKey = struct{}{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// UserID returns the authenticated user, or nil for anonymous requests.
// Sessions work without an account; points and history need one.
func UserID(ctx context.Context) *uuid.UUID {
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil
	}
	id := rd.UserID
	return &id
}

type RequestData struct {
	TokenString  string
	RefreshToken string
	UserID       uuid.UUID
}
