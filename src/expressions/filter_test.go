package expressions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
)

func TestShouldProcess_EmptyTypesAllowsAll(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{}, &observability.NopLogger{})

	ok := filter.ShouldProcess(context.Background(), map[string]any{
		"type": "order",
		"id":   float64(1),
	})

	require.True(t, ok)
}

func TestShouldProcess_TypeAllowlist(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{
		Types: []string{"order", "invoice"},
	}, &observability.NopLogger{})

	require.True(t, filter.ShouldProcess(context.Background(), map[string]any{"type": "order"}))
	require.True(t, filter.ShouldProcess(context.Background(), map[string]any{"type": "invoice"}))
	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{"type": "payment"}))
}

func TestShouldProcess_MissingTypeWithAllowlist(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{
		Types: []string{"order"},
	}, &observability.NopLogger{})

	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{"id": float64(1)}))
	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{"type": float64(7)}))
}

func TestShouldProcess_Conditions(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{
		Conditions: []config.Condition{
			{Field: "amount", Operator: "gt", Value: float64(100)},
			{Field: "status", Operator: "eq", Value: "active"},
		},
		Logic: "AND",
	}, &observability.NopLogger{})

	require.True(t, filter.ShouldProcess(context.Background(), map[string]any{
		"amount": float64(150),
		"status": "active",
	}))

	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{
		"amount": float64(50),
		"status": "active",
	}))
}

func TestShouldProcess_OrLogic(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{
		Conditions: []config.Condition{
			{Field: "priority", Operator: "eq", Value: "high"},
			{Field: "amount", Operator: "gte", Value: float64(1000)},
		},
		Logic: "OR",
	}, &observability.NopLogger{})

	require.True(t, filter.ShouldProcess(context.Background(), map[string]any{
		"priority": "low",
		"amount":   float64(1000),
	}))

	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{
		"priority": "low",
		"amount":   float64(10),
	}))
}

func TestShouldProcess_NestedFieldPath(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{
		Conditions: []config.Condition{
			{Field: "customer.country", Operator: "eq", Value: "VE"},
		},
	}, &observability.NopLogger{})

	require.True(t, filter.ShouldProcess(context.Background(), map[string]any{
		"customer": map[string]any{"country": "VE"},
	}))

	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{
		"customer": map[string]any{"country": "CO"},
	}))

	// Path ausente evalúa a nil, no a error
	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{
		"customer": "not-an-object",
	}))
}

func TestShouldProcess_EvaluationErrorRejects(t *testing.T) {
	t.Parallel()

	filter := NewExpressionFilter(config.FilterConfig{
		Conditions: []config.Condition{
			{Field: "amount", Operator: "between", Value: float64(10)},
		},
	}, &observability.NopLogger{})

	require.False(t, filter.ShouldProcess(context.Background(), map[string]any{
		"amount": float64(20),
	}))
}

func TestEvaluator_Operators(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"name":   "widget",
		"amount": float64(42),
		"tag":    nil,
	}

	cases := []struct {
		name      string
		condition config.Condition
		expected  bool
	}{
		{"equals string", config.Condition{Field: "name", Operator: "==", Value: "widget"}, true},
		{"not equals", config.Condition{Field: "name", Operator: "ne", Value: "gadget"}, true},
		{"equals cross type", config.Condition{Field: "amount", Operator: "eq", Value: "42"}, true},
		{"less than", config.Condition{Field: "amount", Operator: "lt", Value: float64(100)}, true},
		{"gte equal boundary", config.Condition{Field: "amount", Operator: "gte", Value: float64(42)}, true},
		{"in list", config.Condition{Field: "name", Operator: "in", Value: []any{"widget", "gadget"}}, true},
		{"not in list", config.Condition{Field: "name", Operator: "not_in", Value: []any{"gadget"}}, true},
		{"exists", config.Condition{Field: "amount", Operator: "exists"}, true},
		{"is null", config.Condition{Field: "tag", Operator: "is_null"}, true},
		{"is null on present field", config.Condition{Field: "name", Operator: "is_null"}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			evaluator := NewEvaluator(config.FilterConfig{
				Conditions: []config.Condition{tc.condition},
			}, &observability.NopLogger{})

			result, err := evaluator.Evaluate(record)

			require.NoError(t, err)
			require.Equal(t, tc.expected, result)
		})
	}
}

func TestEvaluator_NoConditionsIsError(t *testing.T) {
	t.Parallel()

	evaluator := NewEvaluator(config.FilterConfig{}, &observability.NopLogger{})

	_, err := evaluator.Evaluate(map[string]any{"a": float64(1)})

	require.Error(t, err)
}
