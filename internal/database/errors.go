package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freitasmatheusrn/catalog-reconciler/pkg/rest"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errorMap = map[string]string{
	//UniqueViolation
	"23505": "já está em uso",
	//NotNullViolation
	"23502": "não pode ser nulo",
	//CheckViolation
	"23514": "possui valor inválido",
}

// GetError turns a constraint violation into a validation error. Constraint
// names follow table_column_kind, e.g. variant_lifecycle_status_check.
func GetError(err *pgconn.PgError, constraint string) *rest.ApiErr {
	var columnName string
	parts := strings.Split(constraint, "_")
	if len(parts) >= 3 {
		columnName = parts[len(parts)-2]
	}
	if message, ok := errorMap[err.Code]; ok {
		fmtMsg := fmt.Sprintf("%s %s", columnName, message)
		cause := rest.Causes{
			Field:   columnName,
			Message: fmtMsg,
		}
		return rest.NewBadRequestValidationError(fmtMsg, []rest.Causes{cause})
	}
	return rest.NewInternalServerError("erro ao inserir dados")
}

// HandleError maps a store error to the API error returned to the client.
func HandleError(err error) *rest.ApiErr {
	if errors.Is(err, pgx.ErrNoRows) {
		return rest.NewNotFoundError("recurso nao encontrado")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return GetError(pgErr, pgErr.ConstraintName)
	}
	return rest.NewInternalServerError("erro interno do servidor")
}
