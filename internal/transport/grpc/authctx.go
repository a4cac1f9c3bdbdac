package grpctransport

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc/metadata"

	"github.com/and161185/learnkeeper/internal/errs"
)

// Metadata keys.
const (
	MDAPIKey        = "apikey"
	MDAuthorization = "authorization"
)

func bearerTokenFromMD(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errs.WithMessage(errs.ErrUnauthorized, "no metadata")
	}
	for _, v := range md.Get(MDAuthorization) {
		v = strings.TrimSpace(v)
		if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
			t := strings.TrimSpace(v[7:])
			if t != "" {
				return t, nil
			}
		}
	}
	return "", errs.WithMessage(errs.ErrUnauthorized, "no bearer token")
}

func apiKeyOK(ctx context.Context, want string) bool {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return false
	}
	for _, v := range md.Get(MDAPIKey) {
		if subtle.ConstantTimeCompare([]byte(v), []byte(want)) == 1 {
			return true
		}
	}
	return false
}
