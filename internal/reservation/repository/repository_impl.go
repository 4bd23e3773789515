package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/reservation/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/option"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

const reservationColumns = `id, guest_id, arrival_at, nights, guest_count, advance_payment,
	payment_method, status, observation, created_by, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reservation *domain.Reservation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO reservations (`+reservationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reservation.ID,
		reservation.GuestID,
		reservation.ArrivalAt,
		reservation.Nights,
		reservation.GuestCount,
		reservation.AdvancePayment,
		reservation.PaymentMethod,
		reservation.Status,
		reservation.Observation,
		reservation.CreatedBy,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	).Error
}

func (r *repo) InsertDetails(ctx context.Context, db *gorm.DB, details []domain.Detail) error {
	for _, detail := range details {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO reservation_details (id, reservation_id, room_id, price_id, agreed_rate, held)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			detail.ID,
			detail.ReservationID,
			detail.RoomID,
			detail.PriceID,
			detail.AgreedRate,
			detail.Held,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Reservation, error) {
	return r.findOne(ctx, db, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Reservation, error) {
	return r.findOne(ctx, db, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Reservation, error) {
	var reservation domain.Reservation
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&reservation).Error; err != nil {
		return nil, err
	}
	if reservation.ID == 0 {
		return nil, nil
	}
	return &reservation, nil
}

func (r *repo) ListDetails(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) ([]domain.Detail, error) {
	var details []domain.Detail
	err := db.WithContext(ctx).Raw(
		`SELECT id, reservation_id, room_id, price_id, agreed_rate, held
		 FROM reservation_details
		 WHERE reservation_id = ?
		 ORDER BY id ASC`,
		reservationID,
	).Scan(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Reservation, error) {
	var reservations []*domain.Reservation
	stmt := db.WithContext(ctx).Model(&domain.Reservation{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.GuestID != 0 {
		stmt = stmt.Where("guest_id = ?", filter.GuestID)
	}
	if filter.From != nil {
		stmt = stmt.Where("arrival_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("arrival_at < ?", *filter.To)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.Status, next domain.Status, at time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE reservations SET status = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		next, at, id, from,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) ClaimHold(ctx context.Context, db *gorm.DB, detailID, roomID snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`UPDATE reservation_details SET held = ? WHERE room_id = ? AND id <> ?`,
		false, roomID, detailID,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`UPDATE reservation_details SET held = ? WHERE id = ?`,
		true, detailID,
	).Error
}

func (r *repo) ReleaseHolds(ctx context.Context, db *gorm.DB, reservationID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE reservation_details SET held = ? WHERE reservation_id = ?`,
		false, reservationID,
	).Error
}

func (r *repo) CountOtherHolds(ctx context.Context, db *gorm.DB, roomID, exclude snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*)
		 FROM reservation_details d
		 JOIN reservations r ON r.id = d.reservation_id
		 WHERE d.room_id = ? AND d.reservation_id <> ? AND d.held = ? AND r.status = ?`,
		roomID, exclude, true, domain.StatusConfirmed,
	).Scan(&count).Error
	return count, err
}
