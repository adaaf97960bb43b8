package rpc

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/rocket-flight-simulator/internal/logging"
	"github.com/signalsfoundry/rocket-flight-simulator/internal/observability"
)

// RunIDMetadataKey lets clients choose the run ID of a Simulate call.
const RunIDMetadataKey = "x-run-id"

const maxRunIDLength = 128

var tracer = otel.Tracer("github.com/signalsfoundry/rocket-flight-simulator/internal/rpc")

// RunIDUnaryServerInterceptor puts the client's x-run-id, or a fresh one,
// on the request context together with a logger tagged with it. Malformed
// IDs are rejected with InvalidArgument.
func RunIDUnaryServerInterceptor(base logging.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = logging.Noop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(RunIDMetadataKey); len(ids) > 0 {
				if err := validRunID(ids[0]); err != nil {
					return nil, ToStatusError(err)
				}
				ctx = logging.ContextWithRunID(ctx, ids[0])
			}
		}
		_, method := observability.SplitMethod(info.FullMethod)
		ctx, log := logging.WithRunLogger(ctx, base.With(logging.String("rpc", method)))
		return handler(logging.ContextWithLogger(ctx, log), req)
	}
}

func validRunID(id string) error {
	if id == "" || len(id) > maxRunIDLength {
		return fmt.Errorf("%w: run id must have 1 to %d characters", ErrInvalidRequest, maxRunIDLength)
	}
	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || !unicode.IsPrint(r) }) >= 0 {
		return fmt.Errorf("%w: run id %q contains blank or control characters", ErrInvalidRequest, id)
	}
	return nil
}

// TracingUnaryServerInterceptor renames the span opened by the otelgrpc
// stats handler to rocketsim/<Method>, or opens one when there is none, and
// tags it with the run ID and the resulting gRPC code.
func TracingUnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		service, method := observability.SplitMethod(info.FullMethod)
		name := "rocketsim/" + method

		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.SetName(name)
		} else {
			ctx, span = tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
		}
		span.SetAttributes(
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", method),
			attribute.String("run.id", logging.RunIDFromContext(ctx)),
		)

		resp, err := handler(ctx, req)
		code := status.Code(err)
		span.SetAttributes(attribute.String("rpc.grpc.status", code.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, code.String())
		}
		return resp, err
	}
}

// startChildSpan opens a span for one step of a handler.
func startChildSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
