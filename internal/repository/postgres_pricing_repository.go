package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/database"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// PostgresPricingRepository implements PricingRepository using PostgreSQL
type PostgresPricingRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresPricingRepository(pool *pgxpool.Pool) *PostgresPricingRepository {
	return &PostgresPricingRepository{pool: pool}
}

// GetRules loads a hotel's rule tables with seasonal rules in lookup order
func (r *PostgresPricingRepository) GetRules(ctx context.Context, hotelID string) (_ *domain.PricingRules, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.pricing.get_rules")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("hotel_id", hotelID))

	rules := &domain.PricingRules{HotelID: hotelID}

	rows, err := r.pool.Query(ctx, `
		SELECT id, name, start_date, end_date, multiplier, priority, position
		FROM seasonal_pricing
		WHERE hotel_id = $1
		ORDER BY priority DESC, position
	`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seasonal pricing: %w", err)
	}
	rules.Seasonal, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SeasonalRule, error) {
		s := domain.SeasonalRule{HotelID: hotelID}
		err := row.Scan(&s.ID, &s.Name, &s.StartDate, &s.EndDate, &s.Multiplier, &s.Priority, &s.Position)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan seasonal pricing: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, day_type, multiplier FROM day_type_pricing WHERE hotel_id = $1 ORDER BY day_type
	`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load day type pricing: %w", err)
	}
	rules.DayTypes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DayTypeRule, error) {
		d := domain.DayTypeRule{HotelID: hotelID}
		var dayType string
		err := row.Scan(&d.ID, &dayType, &d.Multiplier)
		d.DayType = domain.DayType(dayType)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan day type pricing: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT id, min_occupancy, max_occupancy, multiplier, position
		FROM occupancy_pricing WHERE hotel_id = $1 ORDER BY position
	`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupancy pricing: %w", err)
	}
	rules.Occupancy, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.OccupancyTier, error) {
		t := domain.OccupancyTier{HotelID: hotelID}
		err := row.Scan(&t.ID, &t.MinPercent, &t.MaxPercent, &t.Multiplier, &t.Position)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan occupancy pricing: %w", err)
	}

	rules.Normalize()
	return rules, nil
}

// ReplaceRules deletes and re-inserts all rule tables of the hotel in one transaction
func (r *PostgresPricingRepository) ReplaceRules(ctx context.Context, rules *domain.PricingRules) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.pricing.replace_rules")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("hotel_id", rules.HotelID),
		attribute.Int("seasonal", len(rules.Seasonal)),
		attribute.Int("day_types", len(rules.DayTypes)),
		attribute.Int("occupancy", len(rules.Occupancy)),
	)

	return database.RunSerializable(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM seasonal_pricing WHERE hotel_id = $1`, rules.HotelID)
		batch.Queue(`DELETE FROM day_type_pricing WHERE hotel_id = $1`, rules.HotelID)
		batch.Queue(`DELETE FROM occupancy_pricing WHERE hotel_id = $1`, rules.HotelID)

		for i, s := range rules.Seasonal {
			position := s.Position
			if position == 0 {
				position = i + 1
			}
			batch.Queue(`
				INSERT INTO seasonal_pricing (id, hotel_id, name, start_date, end_date, multiplier, priority, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, idOrNew(s.ID), rules.HotelID, s.Name, domain.Date(s.StartDate), domain.Date(s.EndDate), s.Multiplier, s.Priority, position)
		}
		for _, d := range rules.DayTypes {
			batch.Queue(`
				INSERT INTO day_type_pricing (id, hotel_id, day_type, multiplier) VALUES ($1, $2, $3, $4)
			`, idOrNew(d.ID), rules.HotelID, string(d.DayType), d.Multiplier)
		}
		for i, t := range rules.Occupancy {
			position := t.Position
			if position == 0 {
				position = i + 1
			}
			batch.Queue(`
				INSERT INTO occupancy_pricing (id, hotel_id, min_occupancy, max_occupancy, multiplier, position)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, idOrNew(t.ID), rules.HotelID, t.MinPercent, t.MaxPercent, t.Multiplier, position)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			if database.HasCode(err, database.CodeForeignKeyViolation) {
				return domain.NewNotFoundError("hotel", rules.HotelID)
			}
			return fmt.Errorf("failed to replace pricing rules: %w", err)
		}
		return nil
	})
}

func idOrNew(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}
