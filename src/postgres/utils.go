package postgres

import (
	"errors"
	"strings"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/jackc/pgx/v5/pgconn"
)

// ParseTableName separa una tabla opcionalmente calificada en schema y nombre.
// Sin calificar, el schema es public.
func ParseTableName(table string) (schema, tableName string) {

	tableParts := strings.Split(table, ".")

	if len(tableParts) == 2 {
		return strings.TrimSpace(tableParts[0]), strings.TrimSpace(tableParts[1])
	}

	return "public", strings.TrimSpace(tableParts[0])
}

func IsPgError(err error) (bool, *pgconn.PgError) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true, pgErr
	}
	return false, nil
}

func GetTableNames(mappings []config.TableMapping) []string {

	tables := make([]string, 0, len(mappings))

	for _, mapping := range mappings {
		if mapping.Table != "" {
			tables = append(tables, mapping.Table)
		}
	}

	return tables
}
