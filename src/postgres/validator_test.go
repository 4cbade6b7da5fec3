package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/postgres"
)

func TestValidateMappings_Valid(t *testing.T) {
	t.Parallel()

	mappings := []config.TableMapping{
		{Type: "event", Table: "events", Columns: []string{"id", "name"}},
		{Type: "metric", SQL: "INSERT INTO metrics (name, value) VALUES ($1, $2)", Params: []string{"name", "value"}},
	}

	assert.NoError(t, postgres.ValidateMappings(mappings))
}

func TestValidateMappings_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		mappings []config.TableMapping
		want     string
	}{
		{
			"empty",
			nil,
			"no table mappings",
		},
		{
			"missing_type",
			[]config.TableMapping{{Type: "  ", Table: "events", Columns: []string{"id"}}},
			"without a record type",
		},
		{
			"duplicate_type",
			[]config.TableMapping{
				{Type: "event", Table: "events", Columns: []string{"id"}},
				{Type: "event", Table: "events_v2", Columns: []string{"id"}},
			},
			"duplicate table mapping",
		},
		{
			"raw_sql_without_params",
			[]config.TableMapping{{Type: "metric", SQL: "INSERT INTO m VALUES ($1)"}},
			"no params",
		},
		{
			"no_table_no_sql",
			[]config.TableMapping{{Type: "event"}},
			"neither a table nor raw SQL",
		},
		{
			"table_without_columns",
			[]config.TableMapping{{Type: "event", Table: "events"}},
			"no columns",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := postgres.ValidateMappings(tc.mappings)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestGetTableNames_SkipsRawSQLMappings(t *testing.T) {
	t.Parallel()

	mappings := []config.TableMapping{
		{Type: "event", Table: "events", Columns: []string{"id"}},
		{Type: "metric", SQL: "INSERT INTO metrics VALUES ($1)", Params: []string{"v"}},
		{Type: "order", Table: "app.orders", Columns: []string{"id"}},
	}

	assert.Equal(t, []string{"events", "app.orders"}, postgres.GetTableNames(mappings))
}

func TestMissingColumns(t *testing.T) {
	t.Parallel()

	available := []string{"id", "name", "created_at"}

	assert.Empty(t, postgres.MissingColumns(available, []string{"id", "name"}))
	assert.Equal(t, []string{"amount", "status"},
		postgres.MissingColumns(available, []string{"id", "amount", "status"}))
	assert.Empty(t, postgres.MissingColumns(available, nil))
}
