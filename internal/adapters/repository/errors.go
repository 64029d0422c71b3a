package repository

import (
	"errors"

	"github.com/lib/pq"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pqCode(err error) (pq.ErrorCode, string) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code, pqErr.Constraint
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pqCode(err)
	return code == codeUniqueViolation
}

// foreignKeyViolation reports the violated constraint name, if any.
func foreignKeyViolation(err error) (string, bool) {
	code, constraint := pqCode(err)
	return constraint, code == codeForeignKeyViolation
}
