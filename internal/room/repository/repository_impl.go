package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/room/domain"
	"gorm.io/gorm"
)

const roomColumns = `id, number, room_type_id, price_id, floor_id, block_id, status, active, notes, version, created_at, updated_at`

const detailSelect = `SELECT r.id, r.number, r.room_type_id, r.price_id, r.floor_id, r.block_id,
		r.status, r.active, r.notes, r.version, r.created_at, r.updated_at,
		rt.name AS room_type_name, rt.capacity AS capacity,
		p.label AS price_label, p.amount AS rate, p.currency AS currency,
		COALESCE(f.name, '') AS floor_name, COALESCE(b.name, '') AS block_name
	FROM rooms r
	JOIN room_types rt ON rt.id = r.room_type_id
	JOIN prices p ON p.id = r.price_id
	LEFT JOIN floors f ON f.id = r.floor_id
	LEFT JOIN blocks b ON b.id = r.block_id`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, room *domain.Room) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rooms (`+roomColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Number,
		room.RoomTypeID,
		room.PriceID,
		room.FloorID,
		room.BlockID,
		room.Status,
		room.Active,
		room.Notes,
		room.Version,
		room.CreatedAt,
		room.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	return r.find(ctx, db, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Room, error) {
	return r.find(ctx, db, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, query string, id snowflake.ID) (*domain.Room, error) {
	var room domain.Room
	if err := db.WithContext(ctx).Raw(query, id).Scan(&room).Error; err != nil {
		return nil, err
	}
	if room.ID == 0 {
		return nil, nil
	}
	return &room, nil
}

func (r *repo) FindDetail(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.RoomDetail, error) {
	var detail domain.RoomDetail
	err := db.WithContext(ctx).Raw(detailSelect+` WHERE r.id = ?`, id).Scan(&detail).Error
	if err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, nil
	}
	return &detail, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.RoomDetail, error) {
	query := detailSelect + ` WHERE 1 = 1`
	args := []any{}
	if filter.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, filter.Status)
	}
	if filter.Active != nil {
		query += ` AND r.active = ?`
		args = append(args, *filter.Active)
	}
	if filter.FloorID != 0 {
		query += ` AND r.floor_id = ?`
		args = append(args, filter.FloorID)
	}
	if filter.BlockID != 0 {
		query += ` AND r.block_id = ?`
		args = append(args, filter.BlockID)
	}
	if filter.RoomTypeID != 0 {
		query += ` AND r.room_type_id = ?`
		args = append(args, filter.RoomTypeID)
	}
	query += ` ORDER BY r.number ASC`

	var rooms []*domain.RoomDetail
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

// CompareAndSetStatus moves a room out of from only if nobody changed it
// since version was read.
func (r *repo) CompareAndSetStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from domain.Status, version int64, to domain.Status, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE rooms SET status = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND version = ?`,
		to,
		now,
		id,
		from,
		version,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, id snowflake.ID, active bool, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE rooms SET active = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		active,
		now,
		id,
	)
	return result.RowsAffected, result.Error
}
