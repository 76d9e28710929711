package auth

import "blogPlatform/internal/apperr"

var errUnauthenticated = apperr.Unauthorized("authentication required")

func forbiddenf(format string, args ...any) error {
	return apperr.Forbidden(format, args...)
}

func internalf(format string, args ...any) error {
	return apperr.Wrap(nil, format, args...)
}

func wrapInternal(err error, msg string) error {
	return apperr.Wrap(err, "%s", msg)
}
