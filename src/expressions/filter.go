package expressions

import (
	"context"
	"slices"

	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/config"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/observability"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/pipeline"
	"github.com/SOLUCIONESSYCOM/go_postgres_sink/src/sink"
)

type ExpressionFilter struct {
	*Evaluator
	observability.Logger
}

func NewExpressionFilter(config config.FilterConfig, logger observability.Logger) *ExpressionFilter {
	evaluator := NewEvaluator(config, logger)

	return &ExpressionFilter{Evaluator: evaluator, Logger: logger}
}

func (f *ExpressionFilter) ShouldProcess(ctx context.Context, record map[string]any) bool {

	// Una lista de tipos vacía admite todos los tipos
	if len(f.FilterConfig.Types) > 0 {

		recordType, ok := record[sink.TypeField].(string)

		if !ok {
			return false
		}

		if !slices.Contains(f.FilterConfig.Types, recordType) {

			return false
		}
	}

	if len(f.FilterConfig.Conditions) == 0 {
		return true
	}

	result, err := f.Evaluator.Evaluate(record)

	if err != nil {

		f.Error(ctx, "Error evaluating expression", err,
			"record", record)

		return false
	}

	return result
}

type ExpressionFilterFactory struct {
	Logger observability.Logger
}

func NewExpressionFilterFactory(logger observability.Logger) *ExpressionFilterFactory {

	return &ExpressionFilterFactory{Logger: logger}
}

func (f *ExpressionFilterFactory) CreateFilter(config config.FilterConfig) pipeline.RecordFilter {

	evaluator := NewEvaluator(config, f.Logger)

	return &ExpressionFilter{Evaluator: evaluator, Logger: f.Logger}
}
