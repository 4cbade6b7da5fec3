package postgres_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/postgres"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/sink"
)

func TestClassifyStoreError_ConstraintViolationIsDataError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code string
	}{
		{"unique_violation", "23505"},
		{"foreign_key_violation", "23503"},
		{"not_null_violation", "23502"},
		{"invalid_text_representation", "22P02"},
		{"numeric_value_out_of_range", "22003"},
		{"cardinality_violation", "21000"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			pgErr := &pgconn.PgError{Code: tc.code, Message: tc.name}

			classified := postgres.ClassifyStoreError(pgErr)

			require.True(t, sink.IsDataError(classified))
			assert.ErrorIs(t, classified, pgErr)
		})
	}
}

func TestClassifyStoreError_InfrastructureErrorsPassThrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{"plain_error", errors.New("connection reset by peer")},
		{"wrapped_error", fmt.Errorf("exec: %w", errors.New("broken pipe"))},
		{"admin_shutdown", &pgconn.PgError{Code: "57P01", Message: "terminating connection"}},
		{"insufficient_resources", &pgconn.PgError{Code: "53100", Message: "disk full"}},
		{"undefined_table", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			classified := postgres.ClassifyStoreError(tc.err)

			assert.False(t, sink.IsDataError(classified))
			assert.Equal(t, tc.err, classified)
		})
	}
}

func TestClassifyStoreError_Nil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, postgres.ClassifyStoreError(nil))
}

func TestParseTableName(t *testing.T) {
	t.Parallel()

	schema, table := postgres.ParseTableName("app.events")
	assert.Equal(t, "app", schema)
	assert.Equal(t, "events", table)

	schema, table = postgres.ParseTableName("events")
	assert.Equal(t, "public", schema)
	assert.Equal(t, "events", table)
}
