package model

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/BaSui01/fedflow/types"
)

const tracerName = "fedflow/model"

// TracedOperations wraps an Operations implementation so every invocation
// produces a span. A nil tracer falls back to the global provider.
func TracedOperations(next Operations, tracer trace.Tracer) Operations {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &tracedOps{next: next, tracer: tracer}
}

type tracedOps struct {
	next   Operations
	tracer trace.Tracer
}

func (t *tracedOps) Train(ctx context.Context) (map[string]float64, error) {
	ctx, span := t.tracer.Start(ctx, "model.train")
	defer span.End()

	metrics, err := t.next.Train(ctx)
	t.finish(span, err, metricAttrs(metrics)...)
	return metrics, err
}

func (t *tracedOps) Evaluate(ctx context.Context) (map[string]float64, error) {
	ctx, span := t.tracer.Start(ctx, "model.evaluate")
	defer span.End()

	metrics, err := t.next.Evaluate(ctx)
	t.finish(span, err, metricAttrs(metrics)...)
	return metrics, err
}

func (t *tracedOps) GetWeights(ctx context.Context) (map[string]types.TensorData, error) {
	ctx, span := t.tracer.Start(ctx, "model.get_weights")
	defer span.End()

	tensors, err := t.next.GetWeights(ctx)
	t.finish(span, err, attribute.Int("tensor.count", len(tensors)))
	return tensors, err
}

func (t *tracedOps) SetWeights(ctx context.Context, tensors []types.TensorData) error {
	ctx, span := t.tracer.Start(ctx, "model.set_weights",
		trace.WithAttributes(attribute.Int("tensor.count", len(tensors))))
	defer span.End()

	err := t.next.SetWeights(ctx, tensors)
	t.finish(span, err)
	return err
}

func (t *tracedOps) finish(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func metricAttrs(metrics map[string]float64) []attribute.KeyValue {
	if len(metrics) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(metrics))
	for k, v := range metrics {
		attrs = append(attrs, attribute.Float64("metric."+k, v))
	}
	return attrs
}
