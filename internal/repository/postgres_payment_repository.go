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

const sessionColumns = `
	id, booking_id, token, amount, currency, qr_payload, status, expires_at,
	paid_at, expired_at, failed_at, failure_reason, created_at, updated_at`

const defaultSweepLimit = 500

// externalTxnConstraint keeps one external transaction to one payment
const externalTxnConstraint = "uq_payments_method_external_txn"

// PostgresPaymentRepository implements PaymentRepository using PostgreSQL
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

func scanSession(row rowScanner) (*domain.PaymentSession, error) {
	s := &domain.PaymentSession{}
	var (
		status        string
		failureReason *string
	)
	err := row.Scan(
		&s.ID, &s.BookingID, &s.Token, &s.Amount, &s.Currency, &s.QRPayload, &status, &s.ExpiresAt,
		&s.PaidAt, &s.ExpiredAt, &s.FailedAt, &failureReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	s.FailureReason = derefString(failureReason)
	s.ExpiresAt = s.ExpiresAt.UTC()
	return s, nil
}

// GetOrCreateSession locks the booking row so concurrent callers for one
// booking serialize and observe each other's session.
func (r *PostgresPaymentRepository) GetOrCreateSession(ctx context.Context, candidate *domain.PaymentSession, now time.Time) (_ *domain.PaymentSession, _ bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.get_or_create_session")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("booking_id", candidate.BookingID))

	var (
		session *domain.PaymentSession
		created bool
	)
	err = database.RunSerializable(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		session, created = nil, false

		var id string
		err := tx.QueryRow(ctx, `SELECT id FROM bookings WHERE id = $1 FOR UPDATE`, candidate.BookingID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("booking", candidate.BookingID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock booking: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE payment_sessions
			SET status = 'EXPIRED', expired_at = $2, updated_at = $2
			WHERE booking_id = $1 AND status = 'PENDING' AND expires_at < $2
		`, candidate.BookingID, now.UTC())
		if err != nil {
			return fmt.Errorf("failed to expire stale sessions: %w", err)
		}

		existing, err := scanSession(tx.QueryRow(ctx, `
			SELECT `+sessionColumns+` FROM payment_sessions
			WHERE booking_id = $1 AND status = 'PENDING'
		`, candidate.BookingID))
		if err == nil {
			session = existing
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to find pending session: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO payment_sessions (`+sessionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			candidate.ID, candidate.BookingID, candidate.Token, candidate.Amount, candidate.Currency,
			candidate.QRPayload, string(candidate.Status), candidate.ExpiresAt,
			candidate.PaidAt, candidate.ExpiredAt, candidate.FailedAt, nullString(candidate.FailureReason),
			candidate.CreatedAt, candidate.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert payment session: %w", err)
		}
		session, created = candidate.Clone(), true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	span.SetAttributes(attribute.Bool("created", created))
	return session, created, nil
}

func (r *PostgresPaymentRepository) GetSession(ctx context.Context, id string) (_ *domain.PaymentSession, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.get_session")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("session_id", id))

	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM payment_sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("payment session", id)
		}
		return nil, fmt.Errorf("failed to get payment session: %w", err)
	}
	return s, nil
}

func (r *PostgresPaymentRepository) MarkSessionExpired(ctx context.Context, id string, now time.Time) (_ *domain.PaymentSession, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.mark_session_expired")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("session_id", id))

	s, err := scanSession(r.pool.QueryRow(ctx, `
		UPDATE payment_sessions
		SET status = 'EXPIRED', expired_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+sessionColumns, id, now.UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetSession(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to expire payment session: %w", err)
	}
	return s, nil
}

func (r *PostgresPaymentRepository) MarkSessionFailed(ctx context.Context, id, reason string, now time.Time) (_ *domain.PaymentSession, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.mark_session_failed")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("session_id", id))

	s, err := scanSession(r.pool.QueryRow(ctx, `
		UPDATE payment_sessions
		SET status = 'FAILED', failed_at = $2, failure_reason = $3, updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
		RETURNING `+sessionColumns, id, now.UTC(), reason))
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetSession(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fail payment session: %w", err)
	}
	return s, nil
}

// ConfirmPayment settles a session and confirms its booking in one transaction
func (r *PostgresPaymentRepository) ConfirmPayment(ctx context.Context, payment *domain.Payment, now time.Time) (_ *domain.PaymentSession, _ *domain.Booking, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.confirm")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("session_id", payment.SessionID),
		attribute.String("booking_id", payment.BookingID),
	)

	var (
		session *domain.PaymentSession
		booking *domain.Booking
		expired bool
	)
	err = database.RunSerializable(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		session, booking, expired = nil, nil, false

		s, err := scanSession(tx.QueryRow(ctx, `
			SELECT `+sessionColumns+` FROM payment_sessions WHERE id = $1 FOR UPDATE
		`, payment.SessionID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("payment session", payment.SessionID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock payment session: %w", err)
		}

		// commit the expiry, then report it
		if s.IsExpiredAt(now) {
			_, err := tx.Exec(ctx, `
				UPDATE payment_sessions
				SET status = 'EXPIRED', expired_at = $2, updated_at = $2
				WHERE id = $1
			`, s.ID, now.UTC())
			if err != nil {
				return fmt.Errorf("failed to expire payment session: %w", err)
			}
			expired = true
			return nil
		}
		if err := s.MarkPaid(now); err != nil {
			return err
		}

		b, err := getBookingForUpdate(ctx, tx, s.BookingID)
		if err != nil {
			return err
		}
		if err := b.Confirm(now); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO payments (id, session_id, booking_id, amount, currency, method, external_transaction_id, verified_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, payment.ID, payment.SessionID, payment.BookingID, payment.Amount, payment.Currency,
			string(payment.Method), payment.ExternalTransactionID, payment.VerifiedBy, payment.CreatedAt)
		if err != nil {
			if database.ConstraintName(err) == externalTxnConstraint {
				return domain.NewDuplicateTransactionError(payment.Method, payment.ExternalTransactionID)
			}
			if database.IsUniqueViolation(err) {
				return domain.ErrAlreadyVerified
			}
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE payment_sessions SET status = 'PAID', paid_at = $2, updated_at = $2 WHERE id = $1
		`, s.ID, s.PaidAt)
		if err != nil {
			return fmt.Errorf("failed to mark payment session paid: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE bookings SET status = $2, confirmed_at = $3, updated_at = $3 WHERE id = $1
		`, b.ID, b.Status.String(), b.ConfirmedAt)
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		session, booking = s, b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if expired {
		return nil, nil, domain.ErrSessionExpired
	}
	return session, booking, nil
}

// ExpireOverdue expires overdue sessions oldest first, skipping rows locked by a verifier
func (r *PostgresPaymentRepository) ExpireOverdue(ctx context.Context, now time.Time, limit int) (_ []*domain.PaymentSession, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.expire_overdue")
	defer func() { endSpan(span, err) }()

	if limit <= 0 {
		limit = defaultSweepLimit
	}

	rows, err := r.pool.Query(ctx, `
		UPDATE payment_sessions
		SET status = 'EXPIRED', expired_at = $1, updated_at = $1
		WHERE id IN (
			SELECT id FROM payment_sessions
			WHERE status = 'PENDING' AND expires_at < $1
			ORDER BY expires_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+sessionColumns, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to expire overdue sessions: %w", err)
	}
	defer rows.Close()

	expired := []*domain.PaymentSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment session: %w", err)
		}
		expired = append(expired, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired sessions: %w", err)
	}

	span.SetAttributes(attribute.Int("expired", len(expired)))
	return expired, nil
}

func (r *PostgresPaymentRepository) ListPayments(ctx context.Context, bookingID string) (_ []*domain.Payment, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.payment.list")
	defer func() { endSpan(span, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT id, session_id, booking_id, amount, currency, method, external_transaction_id, verified_by, created_at
		FROM payments WHERE booking_id = $1 ORDER BY created_at
	`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		p := &domain.Payment{}
		var method string
		err := row.Scan(&p.ID, &p.SessionID, &p.BookingID, &p.Amount, &p.Currency, &method,
			&p.ExternalTransactionID, &p.VerifiedBy, &p.CreatedAt)
		p.Method = domain.PaymentMethod(method)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan payments: %w", err)
	}
	return payments, nil
}
