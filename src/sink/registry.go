package sink

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
)

// TypeField es el campo discriminante que identifica el tipo lógico de un registro
// y selecciona su serializer.
const TypeField = "type"

// Connection es la capacidad mínima que el sink necesita del almacén relacional.
type Connection interface {
	Execute(ctx context.Context, raw string) error

	Prepare(ctx context.Context, name string, sql string) (Statement, error)
}

// Statement es una sentencia de insert precompilada contra una conexión viva.
// No debe sobrevivir a la conexión contra la que fue compilada.
type Statement interface {
	Run(ctx context.Context, args []any) error
}

// Mapper convierte un registro en la lista ordenada de argumentos de su statement.
type Mapper func(record map[string]any) []any

// Serializer liga un discriminante con su statement compilado y su mapper.
type Serializer struct {
	recordType string
	stmt       Statement
	mapper     Mapper
}

func (s *Serializer) Apply(ctx context.Context, record map[string]any) error {
	return s.stmt.Run(ctx, s.mapper(record))
}

type blueprint struct {
	sql    string
	mapper Mapper
}

// RegistryBuilder acumula los mappings discriminante -> (sql, mapper) antes de
// compilarlos. Registrar dos veces el mismo discriminante sobreescribe el anterior.
type RegistryBuilder struct {
	order      []string
	blueprints map[string]blueprint
}

func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		blueprints: make(map[string]blueprint),
	}
}

// Register registra un insert con el texto SQL completo provisto por el caller.
func (b *RegistryBuilder) Register(recordType string, sql string, mapper Mapper) *RegistryBuilder {
	if _, exists := b.blueprints[recordType]; !exists {
		b.order = append(b.order, recordType)
	}

	b.blueprints[recordType] = blueprint{sql: sql, mapper: mapper}

	return b
}

// RegisterTable registra un insert sintetizado a partir de la tabla y sus columnas,
// con identificadores saneados y ON CONFLICT DO NOTHING para que claves duplicadas
// sean un no-op silencioso en lugar de un error fatal.
func (b *RegistryBuilder) RegisterTable(recordType string, table string, columns ...string) *RegistryBuilder {
	return b.Register(recordType, BuildInsertStatement(table, columns), ColumnMapper(columns))
}

// Len retorna la cantidad de discriminantes registrados.
func (b *RegistryBuilder) Len() int {
	return len(b.order)
}

// Build compila todos los blueprints contra la conexión y retorna el registry
// inmutable. Un SQL malformado falla aquí, nunca en el primer uso.
func (b *RegistryBuilder) Build(ctx context.Context, conn Connection) (*Registry, error) {
	serializers := make(map[string]*Serializer, len(b.blueprints))

	for i, recordType := range b.order {
		bp := b.blueprints[recordType]

		stmt, err := conn.Prepare(ctx, fmt.Sprintf("sink_insert_%d", i), bp.sql)

		if err != nil {
			return nil, fmt.Errorf("prepare insert for type '%s': %w", recordType, err)
		}

		serializers[recordType] = &Serializer{
			recordType: recordType,
			stmt:       stmt,
			mapper:     bp.mapper,
		}
	}

	return &Registry{serializers: serializers}, nil
}

// Registry es la tabla de lookup inmutable discriminante -> Serializer.
type Registry struct {
	serializers map[string]*Serializer
}

// Resolve es un lookup puro con caso ausente explícito.
func (r *Registry) Resolve(recordType string) (*Serializer, bool) {
	s, ok := r.serializers[recordType]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.serializers)
}

// Types retorna los discriminantes registrados, ordenados.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.serializers))

	for recordType := range r.serializers {
		types = append(types, recordType)
	}

	slices.Sort(types)

	return types
}

// BuildInsertStatement sintetiza el insert para la tabla con un placeholder por
// columna, en el orden dado. La tabla puede venir calificada como "schema.tabla".
func BuildInsertStatement(table string, columns []string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))

	for i, column := range columns {
		quoted[i] = pgx.Identifier{column}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		sanitizeTable(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))
}

// ColumnMapper retorna el mapper por defecto: extrae las columnas nombradas del
// registro, en orden. Campos ausentes se insertan como NULL.
func ColumnMapper(columns []string) Mapper {
	cols := slices.Clone(columns)

	return func(record map[string]any) []any {
		args := make([]any, len(cols))

		for i, col := range cols {
			args[i] = record[col]
		}

		return args
	}
}

func sanitizeTable(table string) string {
	parts := strings.Split(table, ".")

	if len(parts) == 2 {
		return pgx.Identifier{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}.Sanitize()
	}

	return pgx.Identifier{strings.TrimSpace(table)}.Sanitize()
}
