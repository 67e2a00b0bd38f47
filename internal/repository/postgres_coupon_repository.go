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

const couponColumns = `
	id, code, hotel_id, description, discount_type, discount_value, max_discount,
	min_booking_amount, usage_limit, used_count, valid_from, valid_until,
	is_active, deleted_at, created_at, updated_at`

// PostgresCouponRepository implements CouponRepository using PostgreSQL
type PostgresCouponRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCouponRepository(pool *pgxpool.Pool) *PostgresCouponRepository {
	return &PostgresCouponRepository{pool: pool}
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	c := &domain.Coupon{}
	var (
		hotelID      *string
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &hotelID, &c.Description, &discountType, &c.DiscountValue, &c.MaxDiscount,
		&c.MinBookingAmount, &c.UsageLimit, &c.UsedCount, &c.ValidFrom, &c.ValidUntil,
		&c.IsActive, &c.DeletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.HotelID = derefString(hotelID)
	c.DiscountType = domain.DiscountType(discountType)
	return c, nil
}

func (r *PostgresCouponRepository) Create(ctx context.Context, c *domain.Coupon) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.create")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("code", c.Code))

	_, err = r.pool.Exec(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		c.ID, domain.NormalizeCode(c.Code), nullString(c.HotelID), c.Description, string(c.DiscountType),
		c.DiscountValue, c.MaxDiscount, c.MinBookingAmount, c.UsageLimit, c.UsedCount,
		c.ValidFrom, c.ValidUntil, c.IsActive, c.DeletedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return domain.NewValidationError("code", "a coupon with this code already exists")
		case database.HasCode(err, database.CodeForeignKeyViolation):
			return domain.NewNotFoundError("hotel", c.HotelID)
		}
		return fmt.Errorf("failed to create coupon: %w", err)
	}
	return nil
}

func (r *PostgresCouponRepository) GetByID(ctx context.Context, id string) (_ *domain.Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.get_by_id")
	defer func() { endSpan(span, err) }()

	c, err := scanCoupon(r.pool.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("coupon", id)
		}
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return c, nil
}

func (r *PostgresCouponRepository) GetByCode(ctx context.Context, code string) (_ *domain.Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.get_by_code")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("code", code))

	c, err := scanCoupon(r.pool.QueryRow(ctx, `
		SELECT `+couponColumns+` FROM coupons
		WHERE UPPER(code) = $1 AND deleted_at IS NULL
	`, domain.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("coupon", code)
		}
		return nil, fmt.Errorf("failed to get coupon by code: %w", err)
	}
	return c, nil
}

func (r *PostgresCouponRepository) List(ctx context.Context, hotelID string) (_ []*domain.Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.list")
	defer func() { endSpan(span, err) }()

	query := `SELECT ` + couponColumns + ` FROM coupons`
	var args []any
	if hotelID != "" {
		query += ` WHERE hotel_id IS NULL OR hotel_id = $1`
		args = append(args, hotelID)
	}
	query += ` ORDER BY code`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []*domain.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coupons: %w", err)
	}
	return coupons, nil
}

func (r *PostgresCouponRepository) Deactivate(ctx context.Context, id string, now time.Time) (_ *domain.Coupon, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.deactivate")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("coupon_id", id))

	c, err := scanCoupon(r.pool.QueryRow(ctx, `
		UPDATE coupons SET is_active = FALSE, deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+couponColumns, id, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("coupon", id)
		}
		return nil, fmt.Errorf("failed to deactivate coupon: %w", err)
	}
	return c, nil
}

func (r *PostgresCouponRepository) HasUsage(ctx context.Context, couponID, userID string) (_ bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.has_usage")
	defer func() { endSpan(span, err) }()
	return hasUsage(ctx, r.pool, couponID, userID)
}

func hasUsage(ctx context.Context, q querier, couponID, userID string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM coupon_usages WHERE coupon_id = $1 AND user_id = $2)
	`, couponID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check coupon usage: %w", err)
	}
	return exists, nil
}

func (r *PostgresCouponRepository) RecordUsage(ctx context.Context, redemption *CouponRedemption) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.coupon.record_usage")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("coupon_id", redemption.Usage.CouponID),
		attribute.String("booking_id", redemption.Usage.BookingID),
	)

	return database.RunSerializable(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return recordUsage(ctx, tx, redemption)
	})
}

// recordUsage locks the coupon row, re-runs the usage checks and commits the usage
func recordUsage(ctx context.Context, tx pgx.Tx, red *CouponRedemption) error {
	u := red.Usage

	c, err := scanCoupon(tx.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = $1 FOR UPDATE`, u.CouponID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewCouponError(red.Code, domain.CouponInvalidCode)
	}
	if err != nil {
		return fmt.Errorf("failed to lock coupon: %w", err)
	}
	if !c.IsLive() {
		return domain.NewCouponError(red.Code, domain.CouponInvalidCode)
	}
	if c.LimitReached() {
		return domain.NewCouponError(red.Code, domain.CouponLimitReached)
	}
	if red.SingleUsePerUser {
		used, err := hasUsage(ctx, tx, c.ID, u.UserID)
		if err != nil {
			return err
		}
		if used {
			return domain.NewCouponError(red.Code, domain.CouponAlreadyUsed)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO coupon_usages (id, coupon_id, user_id, booking_id, discount_applied, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.CouponID, u.UserID, u.BookingID, u.DiscountApplied, u.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.NewValidationError("booking_id", "coupon already applied to this booking")
		}
		return fmt.Errorf("failed to insert coupon usage: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = $2 WHERE id = $1
	`, c.ID, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	return nil
}
