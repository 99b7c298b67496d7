package postgresrepo

import (
	"errors"
	"fmt"
)

// wrapDBErr maps common DB errors to repository-level errors and wraps them with
// the provided operation name. Retryable errors keep their pgconn cause so
// callers can still detect them.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	translated := translateDBErr(err)
	if errors.Is(translated, err) {
		return fmt.Errorf("%s:%w", op, err)
	}

	return fmt.Errorf("%s:%w", op, translated)
}
