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

const roomColumns = `id, hotel_id, room_type_id, room_number, floor, status, is_active, created_at, updated_at`

// PostgresInventoryRepository implements InventoryRepository using PostgreSQL
type PostgresInventoryRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresInventoryRepository(pool *pgxpool.Pool) *PostgresInventoryRepository {
	return &PostgresInventoryRepository{pool: pool}
}

func (r *PostgresInventoryRepository) CreateHotel(ctx context.Context, hotel *domain.Hotel) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hotel.create")
	defer func() { endSpan(span, err) }()

	_, err = r.pool.Exec(ctx, `
		INSERT INTO hotels (id, name, city, timezone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, hotel.ID, hotel.Name, hotel.City, hotel.Timezone, hotel.IsActive, hotel.CreatedAt, hotel.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create hotel: %w", err)
	}
	return nil
}

func (r *PostgresInventoryRepository) GetHotel(ctx context.Context, id string) (_ *domain.Hotel, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.hotel.get")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("hotel_id", id))

	h := &domain.Hotel{}
	err = r.pool.QueryRow(ctx, `
		SELECT id, name, city, timezone, is_active, created_at, updated_at
		FROM hotels WHERE id = $1
	`, id).Scan(&h.ID, &h.Name, &h.City, &h.Timezone, &h.IsActive, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("hotel", id)
		}
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}
	return h, nil
}

func (r *PostgresInventoryRepository) CreateRoomType(ctx context.Context, rt *domain.RoomType) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room_type.create")
	defer func() { endSpan(span, err) }()

	_, err = r.pool.Exec(ctx, `
		INSERT INTO room_types (id, hotel_id, name, base_price, max_occupancy, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rt.ID, rt.HotelID, rt.Name, rt.BasePrice, rt.MaxOccupancy, rt.IsActive, rt.CreatedAt, rt.UpdatedAt)
	if err != nil {
		if database.HasCode(err, database.CodeForeignKeyViolation) {
			return domain.NewNotFoundError("hotel", rt.HotelID)
		}
		return fmt.Errorf("failed to create room type: %w", err)
	}
	return nil
}

func (r *PostgresInventoryRepository) GetRoomType(ctx context.Context, id string) (_ *domain.RoomType, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room_type.get")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("room_type_id", id))

	rt := &domain.RoomType{}
	err = r.pool.QueryRow(ctx, `
		SELECT id, hotel_id, name, base_price, max_occupancy, is_active, created_at, updated_at
		FROM room_types WHERE id = $1
	`, id).Scan(&rt.ID, &rt.HotelID, &rt.Name, &rt.BasePrice, &rt.MaxOccupancy, &rt.IsActive, &rt.CreatedAt, &rt.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("room type", id)
		}
		return nil, fmt.Errorf("failed to get room type: %w", err)
	}
	return rt, nil
}

func (r *PostgresInventoryRepository) CreateRoom(ctx context.Context, room *domain.Room) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.create")
	defer func() { endSpan(span, err) }()

	if room.Status == "" {
		room.Status = domain.RoomStatusAvailable
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, room.ID, room.HotelID, room.RoomTypeID, room.RoomNumber, room.Floor, string(room.Status),
		room.IsActive, room.CreatedAt, room.UpdatedAt)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return domain.NewValidationError("room_number", "already exists in this hotel")
		case database.HasCode(err, database.CodeForeignKeyViolation):
			return domain.NewNotFoundError("room type", room.RoomTypeID)
		}
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func scanRoom(row rowScanner) (*domain.Room, error) {
	rm := &domain.Room{}
	var status string
	if err := row.Scan(&rm.ID, &rm.HotelID, &rm.RoomTypeID, &rm.RoomNumber, &rm.Floor, &status,
		&rm.IsActive, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	rm.Status = domain.RoomStatus(status)
	return rm, nil
}

func (r *PostgresInventoryRepository) GetRoom(ctx context.Context, id string) (_ *domain.Room, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.get")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("room_id", id))

	rm, err := scanRoom(r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("room", id)
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return rm, nil
}

func (r *PostgresInventoryRepository) ListRooms(ctx context.Context, hotelID, roomTypeID string) (_ []*domain.Room, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.list")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("hotel_id", hotelID), attribute.String("room_type_id", roomTypeID))

	query := `SELECT ` + roomColumns + ` FROM rooms WHERE hotel_id = $1`
	args := []any{hotelID}
	if roomTypeID != "" {
		query += ` AND room_type_id = $2`
		args = append(args, roomTypeID)
	}
	query += ` ORDER BY room_number`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*domain.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}
	return rooms, nil
}

func (r *PostgresInventoryRepository) CountActiveRooms(ctx context.Context, hotelID, roomTypeID string) (_ int, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.count_active")
	defer func() { endSpan(span, err) }()
	return countActiveRooms(ctx, r.pool, hotelID, roomTypeID)
}

func countActiveRooms(ctx context.Context, q querier, hotelID, roomTypeID string) (int, error) {
	query := `SELECT COUNT(*) FROM rooms WHERE hotel_id = $1 AND is_active`
	args := []any{hotelID}
	if roomTypeID != "" {
		query += ` AND room_type_id = $2`
		args = append(args, roomTypeID)
	}
	var n int
	if err := q.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active rooms: %w", err)
	}
	return n, nil
}

func (r *PostgresInventoryRepository) UpdateRoomStatus(ctx context.Context, id string, status domain.RoomStatus, now time.Time) (_ *domain.Room, err error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.room.update_status")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("room_id", id), attribute.String("status", status.String()))

	rm, err := scanRoom(r.pool.QueryRow(ctx, `
		UPDATE rooms SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+roomColumns, id, string(status), now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("room", id)
		}
		return nil, fmt.Errorf("failed to update room status: %w", err)
	}
	return rm, nil
}
