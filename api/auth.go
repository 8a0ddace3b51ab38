package api

import (
	"errors"
	"strings"
)

// HeaderAuth extracts the caller identity from a bearer-style header. Token
// verification lives outside this service; the gateway in front of it is
// expected to have validated the credential and the value here is treated as
// an opaque user id.
type HeaderAuth struct{}

func (HeaderAuth) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("bad auth header")
	}
	sub := strings.TrimSpace(parts[1])
	if sub == "" {
		return "", errors.New("missing subject")
	}
	return sub, nil
}
