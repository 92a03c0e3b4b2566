package booking

import (
	"context"
	"testing"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordingTracer(t *testing.T) (*tracetest.SpanRecorder, BookingServiceOption) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return sr, WithTracer(tp.Tracer("booking-test"))
}

func spanNamed(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, s := range sr.Ended() {
		if s.Name() == name {
			return s
		}
	}
	require.Failf(t, "span not recorded", "no ended span %q", name)
	return nil
}

func hasException(s sdktrace.ReadOnlySpan) bool {
	for _, ev := range s.Events() {
		if ev.Name == "exception" {
			return true
		}
	}
	return false
}

func TestBookingService_Spans_RecordErrors(t *testing.T) {
	sr, withTracer := recordingTracer(t)
	f := newFixture(t, 1, withTracer)
	ctx := context.Background()

	_, err := f.service.CreateReservationWithTicketsAndPayment(ctx, f.input(2))
	require.ErrorIs(t, err, domain.ErrInsufficientInventory)

	_, err = f.service.CancelReservation(ctx, 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)

	create := spanNamed(t, sr, "booking.CreateReservation")
	assert.Equal(t, codes.Error, create.Status().Code)
	assert.True(t, hasException(create))

	cancel := spanNamed(t, sr, "booking.CancelReservation")
	assert.Equal(t, codes.Error, cancel.Status().Code)
	assert.True(t, hasException(cancel))
}

func TestBookingService_Spans_Success(t *testing.T) {
	sr, withTracer := recordingTracer(t)
	f := newFixture(t, 3, withTracer)

	res, err := f.service.CreateReservationWithTicketsAndPayment(context.Background(), f.input(1))
	require.NoError(t, err)

	create := spanNamed(t, sr, "booking.CreateReservation")
	assert.Equal(t, codes.Unset, create.Status().Code)
	assert.False(t, hasException(create))
	var pnr string
	for _, kv := range create.Attributes() {
		if kv.Key == "pnr" {
			pnr = kv.Value.AsString()
		}
	}
	assert.Equal(t, res.PNR, pnr)
}
