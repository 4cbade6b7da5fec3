package postgres

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/utils"
	"github.com/jackc/pgx/v5"
)

// ValidateMappings verifica la coherencia de los mappings de tablas antes de tocar
// la base: discriminante presente, sin duplicados, y tabla+columnas o SQL crudo.
func ValidateMappings(mappings []config.TableMapping) error {

	if len(mappings) == 0 {
		return fmt.Errorf("no table mappings configured")
	}

	seen := make(map[string]bool, len(mappings))

	for _, mapping := range mappings {

		if utils.StringIsEmptyOrWhitespace(mapping.Type) {
			return fmt.Errorf("table mapping without a record type")
		}

		if seen[mapping.Type] {
			return fmt.Errorf("duplicate table mapping for type '%s'", mapping.Type)
		}

		seen[mapping.Type] = true

		if mapping.SQL != "" {

			if len(mapping.Params) == 0 {
				return fmt.Errorf("mapping for type '%s' has raw SQL but no params", mapping.Type)
			}

			continue
		}

		if utils.StringIsEmptyOrWhitespace(mapping.Table) {
			return fmt.Errorf("mapping for type '%s' has neither a table nor raw SQL", mapping.Type)
		}

		if len(mapping.Columns) == 0 {
			return fmt.Errorf("mapping for type '%s' has no columns", mapping.Type)
		}
	}

	return nil
}

// ValidateTargetTables verifica que cada tabla destino exista y que tenga todas
// las columnas mapeadas. Los mappings con SQL crudo quedan fuera: su validación
// real es la preparación del statement.
func ValidateTargetTables(ctx context.Context, sqlConn *pgx.Conn,
	mappings []config.TableMapping) error {

	for _, mapping := range mappings {

		if mapping.Table == "" {
			continue
		}

		schema, tableName := ParseTableName(mapping.Table)

		var exists bool

		err := sqlConn.QueryRow(ctx, TABLE_EXISTS_QUERY, schema, tableName).Scan(&exists)

		if err != nil {
			return fmt.Errorf("verificar tabla %q: %w", mapping.Table, err)
		}

		if !exists {
			return fmt.Errorf("target table %q does not exist", mapping.Table)
		}

		if len(mapping.Columns) == 0 {
			continue
		}

		available, err := fetchColumnNames(ctx, sqlConn, schema, tableName)

		if err != nil {
			return fmt.Errorf("verificar columnas de %q: %w", mapping.Table, err)
		}

		if missing := MissingColumns(available, mapping.Columns); len(missing) > 0 {
			return fmt.Errorf("table %q is missing mapped columns %v", mapping.Table, missing)
		}
	}

	return nil
}

func fetchColumnNames(ctx context.Context, sqlConn *pgx.Conn,
	schema, tableName string) ([]string, error) {

	rows, err := sqlConn.Query(ctx, COLUMN_NAMES_QUERY, schema, tableName)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var columns []string

	for rows.Next() {

		var column string

		if err := rows.Scan(&column); err != nil {
			return nil, err
		}

		columns = append(columns, column)
	}

	return columns, rows.Err()
}

// MissingColumns retorna las columnas requeridas que no aparecen entre las
// disponibles, en el orden en que fueron mapeadas.
func MissingColumns(available, required []string) []string {

	have := make(map[string]bool, len(available))

	for _, column := range available {
		have[column] = true
	}

	var missing []string

	for _, column := range required {
		if !have[column] {
			missing = append(missing, column)
		}
	}

	return missing
}
