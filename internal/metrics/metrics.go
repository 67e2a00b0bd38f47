package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/prohmpiriya/hotel-booking-engine"

var (
	// Booking counters
	BookingsCreated    metric.Int64Counter
	BookingsCancelled  metric.Int64Counter
	BookingsCheckedIn  metric.Int64Counter
	BookingsCheckedOut metric.Int64Counter
	BookingsNoShow     metric.Int64Counter

	// Rejections
	CapacityRejections metric.Int64Counter
	CouponRejections   metric.Int64Counter

	// Payment counters
	SessionsCreated  metric.Int64Counter
	PaymentsVerified metric.Int64Counter
	SessionsExpired  metric.Int64Counter
	SessionsFailed   metric.Int64Counter

	// Histograms
	QuoteDuration metric.Float64Histogram
	SweepDuration metric.Float64Histogram

	initOnce sync.Once
	initErr  error
)

// Init creates all engine instruments on the global meter provider. Call it
// after telemetry.Init so instruments bind to the exporting provider.
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics(otel.Meter(meterName))
	})
	return initErr
}

func initMetrics(meter metric.Meter) error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&BookingsCreated, "hotel_bookings_created_total", "Total number of bookings created"},
		{&BookingsCancelled, "hotel_bookings_cancelled_total", "Total number of bookings cancelled"},
		{&BookingsCheckedIn, "hotel_bookings_checked_in_total", "Total number of check-ins"},
		{&BookingsCheckedOut, "hotel_bookings_checked_out_total", "Total number of check-outs"},
		{&BookingsNoShow, "hotel_bookings_no_show_total", "Total number of bookings marked no-show"},
		{&CapacityRejections, "hotel_capacity_rejections_total", "Booking attempts rejected for lack of inventory"},
		{&CouponRejections, "hotel_coupon_rejections_total", "Coupon validations rejected, by reason"},
		{&SessionsCreated, "hotel_payment_sessions_created_total", "Total number of payment sessions minted"},
		{&PaymentsVerified, "hotel_payments_verified_total", "Total number of payments verified"},
		{&SessionsExpired, "hotel_payment_sessions_expired_total", "Total number of payment sessions expired"},
		{&SessionsFailed, "hotel_payment_sessions_failed_total", "Total number of payment sessions failed by the rail"},
	}
	for _, c := range counters {
		*c.target, err = meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit("1"),
		)
		if err != nil {
			return err
		}
	}

	QuoteDuration, err = meter.Float64Histogram("hotel_quote_duration_seconds",
		metric.WithDescription("Time to compute a price quote"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	SweepDuration, err = meter.Float64Histogram("hotel_session_sweep_duration_seconds",
		metric.WithDescription("Time to run one payment session sweep"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	return nil
}

func add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c != nil && n > 0 {
		c.Add(ctx, n, metric.WithAttributes(attrs...))
	}
}

func record(ctx context.Context, h metric.Float64Histogram, v float64, attrs ...attribute.KeyValue) {
	if h != nil {
		h.Record(ctx, v, metric.WithAttributes(attrs...))
	}
}

// RecordBookingCreated records a new PENDING booking
func RecordBookingCreated(ctx context.Context, hotelID, roomTypeID string, withCoupon bool) {
	add(ctx, BookingsCreated, 1,
		attribute.String("hotel_id", hotelID),
		attribute.String("room_type_id", roomTypeID),
		attribute.Bool("coupon", withCoupon),
	)
}

// RecordBookingCancelled records a cancellation
func RecordBookingCancelled(ctx context.Context, hotelID, fromStatus string) {
	add(ctx, BookingsCancelled, 1,
		attribute.String("hotel_id", hotelID),
		attribute.String("from_status", fromStatus),
	)
}

func RecordCheckIn(ctx context.Context, hotelID string) {
	add(ctx, BookingsCheckedIn, 1, attribute.String("hotel_id", hotelID))
}

func RecordCheckOut(ctx context.Context, hotelID string) {
	add(ctx, BookingsCheckedOut, 1, attribute.String("hotel_id", hotelID))
}

func RecordNoShow(ctx context.Context, hotelID string) {
	add(ctx, BookingsNoShow, 1, attribute.String("hotel_id", hotelID))
}

// RecordCapacityRejection records a create attempt with no room left
func RecordCapacityRejection(ctx context.Context, hotelID, roomTypeID string) {
	add(ctx, CapacityRejections, 1,
		attribute.String("hotel_id", hotelID),
		attribute.String("room_type_id", roomTypeID),
	)
}

// RecordCouponRejection records a coupon rejected with reason
func RecordCouponRejection(ctx context.Context, reason string) {
	add(ctx, CouponRejections, 1, attribute.String("reason", reason))
}

func RecordSessionCreated(ctx context.Context, currency string) {
	add(ctx, SessionsCreated, 1, attribute.String("currency", currency))
}

func RecordPaymentVerified(ctx context.Context, method string) {
	add(ctx, PaymentsVerified, 1, attribute.String("method", method))
}

// RecordSessionsExpired records sessions expired lazily or by the sweeper
func RecordSessionsExpired(ctx context.Context, source string, count int) {
	add(ctx, SessionsExpired, int64(count), attribute.String("source", source))
}

func RecordSessionFailed(ctx context.Context, method string) {
	add(ctx, SessionsFailed, 1, attribute.String("method", method))
}

// RecordQuoteDuration records how long a quote took
func RecordQuoteDuration(ctx context.Context, hotelID string, seconds float64) {
	record(ctx, QuoteDuration, seconds, attribute.String("hotel_id", hotelID))
}

// RecordSweepDuration records how long one sweep took and how much it expired
func RecordSweepDuration(ctx context.Context, seconds float64, expired int) {
	record(ctx, SweepDuration, seconds, attribute.Int("expired", expired))
}
