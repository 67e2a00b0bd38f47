package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/database"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const bookingColumns = `
	id, reference, hotel_id, room_type_id, room_id, user_id,
	check_in_date, check_out_date, guests, guest_name, guest_email, guest_phone, special_requests,
	base_price, seasonal_multiplier, day_type_multiplier, occupancy_multiplier, nights,
	subtotal, coupon_id, coupon_code, discount_amount, taxes, total_amount, currency,
	status, confirmed_at, checked_in_at, checked_in_by, checked_out_at, checked_out_by,
	cancelled_at, cancelled_by, cancellation_reason, no_show_at, created_at, updated_at`

// PostgresBookingRepository implements BookingRepository using PostgreSQL with pgxpool
type PostgresBookingRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresBookingRepository creates a new PostgresBookingRepository
func NewPostgresBookingRepository(pool *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{pool: pool}
}

// CreateWithCapacity serializes creators of the same room type with a
// transaction-scoped advisory lock, then re-counts inventory before inserting.
func (r *PostgresBookingRepository) CreateWithCapacity(ctx context.Context, booking *domain.Booking, redemption *CouponRedemption) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.create_with_capacity")
	defer func() { endSpan(span, err) }()

	span.SetAttributes(
		attribute.String("booking_id", booking.ID),
		attribute.String("room_type_id", booking.RoomTypeID),
		attribute.Bool("coupon", redemption != nil),
	)

	return database.RunSerializable(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, booking.RoomTypeID); err != nil {
			return fmt.Errorf("failed to lock room type: %w", err)
		}

		active, err := countActiveRooms(ctx, tx, booking.HotelID, booking.RoomTypeID)
		if err != nil {
			return err
		}
		held, err := countOverlapping(ctx, tx, booking.HotelID, booking.RoomTypeID, booking.CheckInDate, booking.CheckOutDate)
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.Int("active_rooms", active), attribute.Int("held", held))
		if active-held <= 0 {
			return &domain.CapacityError{RoomTypeID: booking.RoomTypeID, CheckIn: booking.CheckInDate, CheckOut: booking.CheckOutDate}
		}

		if err := insertBooking(ctx, tx, booking); err != nil {
			return err
		}
		if redemption != nil {
			return recordUsage(ctx, tx, redemption)
		}
		return nil
	})
}

func insertBooking(ctx context.Context, q querier, b *domain.Booking) error {
	_, err := q.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25,
			$26, $27, $28, $29, $30, $31,
			$32, $33, $34, $35, $36, $37
		)`,
		b.ID, b.Reference, b.HotelID, b.RoomTypeID, nullString(b.RoomID), b.UserID,
		b.CheckInDate, b.CheckOutDate, b.Guest.Guests, b.Guest.Name, b.Guest.Email, b.Guest.Phone, b.Guest.SpecialRequests,
		b.Price.BasePrice, b.Price.SeasonalMultiplier, b.Price.DayTypeMultiplier, b.Price.OccupancyMultiplier, b.Price.Nights,
		b.Price.Subtotal, nullString(b.Price.CouponID), nullString(b.Price.CouponCode), b.Price.DiscountAmount,
		b.Price.Taxes, b.Price.Total, b.Price.Currency,
		b.Status.String(), b.ConfirmedAt, b.CheckedInAt, nullString(b.CheckedInBy), b.CheckedOutAt, nullString(b.CheckedOutBy),
		b.CancelledAt, nullString(b.CancelledBy), nullString(b.CancellationReason), b.NoShowAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	var (
		status                                 string
		roomID, couponID, couponCode           *string
		checkedInBy, checkedOutBy, cancelledBy *string
		cancellationReason                     *string
	)
	err := row.Scan(
		&b.ID, &b.Reference, &b.HotelID, &b.RoomTypeID, &roomID, &b.UserID,
		&b.CheckInDate, &b.CheckOutDate, &b.Guest.Guests, &b.Guest.Name, &b.Guest.Email, &b.Guest.Phone, &b.Guest.SpecialRequests,
		&b.Price.BasePrice, &b.Price.SeasonalMultiplier, &b.Price.DayTypeMultiplier, &b.Price.OccupancyMultiplier, &b.Price.Nights,
		&b.Price.Subtotal, &couponID, &couponCode, &b.Price.DiscountAmount, &b.Price.Taxes, &b.Price.Total, &b.Price.Currency,
		&status, &b.ConfirmedAt, &b.CheckedInAt, &checkedInBy, &b.CheckedOutAt, &checkedOutBy,
		&b.CancelledAt, &cancelledBy, &cancellationReason, &b.NoShowAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Status = domain.BookingStatus(status)
	b.RoomID = derefString(roomID)
	b.Price.CouponID = derefString(couponID)
	b.Price.CouponCode = derefString(couponCode)
	b.CheckedInBy = derefString(checkedInBy)
	b.CheckedOutBy = derefString(checkedOutBy)
	b.CancelledBy = derefString(cancelledBy)
	b.CancellationReason = derefString(cancellationReason)
	b.CheckInDate = domain.Date(b.CheckInDate)
	b.CheckOutDate = domain.Date(b.CheckOutDate)
	b.ConfirmedAt = utcPtr(b.ConfirmedAt)
	b.CheckedInAt = utcPtr(b.CheckedInAt)
	b.CheckedOutAt = utcPtr(b.CheckedOutAt)
	b.CancelledAt = utcPtr(b.CancelledAt)
	b.NoShowAt = utcPtr(b.NoShowAt)
	return b, nil
}

func getBookingForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("booking", id)
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return b, nil
}

// GetByID retrieves a booking by its ID
func (r *PostgresBookingRepository) GetByID(ctx context.Context, id string) (_ *domain.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("booking_id", id))

	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("booking", id)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// ListByUser retrieves a page of a user's bookings
func (r *PostgresBookingRepository) ListByUser(ctx context.Context, userID string, limit, offset int) (_ []*domain.Booking, _ int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.list_by_user")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating bookings: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(bookings)))
	return bookings, total, nil
}

// CountOverlapping counts holding bookings that intersect the stay
func (r *PostgresBookingRepository) CountOverlapping(ctx context.Context, hotelID, roomTypeID string, checkIn, checkOut time.Time) (_ int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.count_overlapping")
	defer func() { endSpan(span, err) }()
	return countOverlapping(ctx, r.pool, hotelID, roomTypeID, checkIn, checkOut)
}

func countOverlapping(ctx context.Context, q querier, hotelID, roomTypeID string, checkIn, checkOut time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE hotel_id = $1
		  AND status = ANY($2)
		  AND check_in_date < $3
		  AND check_out_date > $4`
	args := []any{hotelID, holdingStatuses(), domain.Date(checkOut), domain.Date(checkIn)}
	if roomTypeID != "" {
		query += ` AND room_type_id = $5`
		args = append(args, roomTypeID)
	}

	var n int
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return n, nil
}

// UpdateStatus writes the booking's lifecycle fields if its stored status is still from
func (r *PostgresBookingRepository) UpdateStatus(ctx context.Context, b *domain.Booking, from domain.BookingStatus, room *domain.RoomStatusChange) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.update_status")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("booking_id", b.ID),
		attribute.String("from", from.String()),
		attribute.String("to", b.Status.String()),
	)

	return database.RunReadCommitted(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE bookings SET
				status = $2,
				room_id = $3,
				confirmed_at = $4,
				checked_in_at = $5,
				checked_in_by = $6,
				checked_out_at = $7,
				checked_out_by = $8,
				cancelled_at = $9,
				cancelled_by = $10,
				cancellation_reason = $11,
				no_show_at = $12,
				updated_at = $13
			WHERE id = $1 AND status = $14
		`,
			b.ID, b.Status.String(), nullString(b.RoomID), b.ConfirmedAt,
			b.CheckedInAt, nullString(b.CheckedInBy), b.CheckedOutAt, nullString(b.CheckedOutBy),
			b.CancelledAt, nullString(b.CancelledBy), nullString(b.CancellationReason), b.NoShowAt,
			b.UpdatedAt, from.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to update booking status: %w", err)
		}

		if tag.RowsAffected() == 0 {
			var current string
			err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1`, b.ID).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewNotFoundError("booking", b.ID)
			}
			if err != nil {
				return fmt.Errorf("failed to check booking status: %w", err)
			}
			return domain.NewInvalidStateError("booking", b.ID, current, "update")
		}

		if b.Status == domain.BookingStatusCancelled {
			_, err := tx.Exec(ctx, `
				UPDATE payment_sessions
				SET status = $2, failed_at = $3, failure_reason = $4, updated_at = $3
				WHERE booking_id = $1 AND status = $5
			`, b.ID, domain.SessionStatusFailed.String(), b.UpdatedAt,
				domain.FailureBookingCancelled, domain.SessionStatusPending.String())
			if err != nil {
				return fmt.Errorf("failed to close payment sessions: %w", err)
			}
		}

		if room != nil {
			return applyRoomChange(ctx, tx, room, b.UpdatedAt)
		}
		return nil
	})
}

func applyRoomChange(ctx context.Context, tx pgx.Tx, change *domain.RoomStatusChange, now time.Time) error {
	query := `UPDATE rooms SET status = $2, updated_at = $3 WHERE id = $1`
	args := []any{change.RoomID, string(change.Status), now}
	if change.Expect != "" {
		query += ` AND is_active AND status = $4`
		args = append(args, string(change.Expect))
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update room status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var (
		status string
		active bool
	)
	err = tx.QueryRow(ctx, `SELECT status, is_active FROM rooms WHERE id = $1`, change.RoomID).Scan(&status, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError("room", change.RoomID)
	}
	if err != nil {
		return fmt.Errorf("failed to check room status: %w", err)
	}
	if !active {
		status = "INACTIVE"
	}
	return domain.NewInvalidStateError("room", change.RoomID, status, "assign")
}
