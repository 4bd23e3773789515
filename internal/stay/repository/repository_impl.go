package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/stay/domain"
	"gorm.io/gorm"
)

const stayColumns = `id, guest_id, room_id, check_in_at, check_out_at, planned_nights,
	advance_payment, advance_method, carried_balance, nightly_rate, agreed_rate, notes,
	status, closed_reason, schedule_id, previous_stay_id, reservation_id, created_by,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, stay *domain.Stay) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stays (`+stayColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stay.ID,
		stay.GuestID,
		stay.RoomID,
		stay.CheckInAt,
		stay.CheckOutAt,
		stay.PlannedNights,
		stay.AdvancePayment,
		stay.AdvanceMethod,
		stay.CarriedBalance,
		stay.NightlyRate,
		stay.AgreedRate,
		stay.Notes,
		stay.Status,
		stay.ClosedReason,
		stay.ScheduleID,
		stay.PreviousStayID,
		stay.ReservationID,
		stay.CreatedBy,
		stay.CreatedAt,
		stay.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Stay, error) {
	return r.findOne(ctx, db, `SELECT `+stayColumns+` FROM stays WHERE id = ?`, id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Stay, error) {
	return r.findOne(ctx, db, `SELECT `+stayColumns+` FROM stays WHERE id = ? FOR UPDATE`, id)
}

func (r *repo) FindActiveByRoom(ctx context.Context, db *gorm.DB, roomID snowflake.ID) (*domain.Stay, error) {
	return r.findOne(ctx, db,
		`SELECT `+stayColumns+` FROM stays WHERE room_id = ? AND status = ?`,
		roomID, domain.StatusActive,
	)
}

func (r *repo) FindActiveByGuest(ctx context.Context, db *gorm.DB, guestID snowflake.ID) (*domain.Stay, error) {
	return r.findOne(ctx, db,
		`SELECT `+stayColumns+` FROM stays
		 WHERE status = ?
		   AND (guest_id = ? OR id IN (SELECT stay_id FROM stay_companions WHERE guest_id = ?))
		 ORDER BY created_at ASC
		 LIMIT 1`,
		domain.StatusActive, guestID, guestID,
	)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Stay, error) {
	var stay domain.Stay
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&stay).Error; err != nil {
		return nil, err
	}
	if stay.ID == 0 {
		return nil, nil
	}
	return &stay, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.ActiveStay, error) {
	query := `SELECT s.id, s.guest_id, s.room_id, s.check_in_at, s.check_out_at, s.planned_nights,
	                 s.advance_payment, s.advance_method, s.carried_balance, s.nightly_rate,
	                 s.agreed_rate, s.notes, s.status, s.closed_reason, s.schedule_id,
	                 s.previous_stay_id, s.reservation_id, s.created_by, s.created_at, s.updated_at,
	                 g.first_name, g.last_name, g.identification_number,
	                 r.number AS room_number, rt.name AS room_type_name, rt.capacity,
	                 (SELECT COUNT(*) FROM stay_companions c WHERE c.stay_id = s.id) AS companion_count
	          FROM stays s
	          JOIN guests g ON g.id = s.guest_id
	          JOIN rooms r ON r.id = s.room_id
	          JOIN room_types rt ON rt.id = r.room_type_id
	          WHERE s.status = ?`
	args := []any{domain.StatusActive}
	if filter.RoomID != 0 {
		query += ` AND s.room_id = ?`
		args = append(args, filter.RoomID)
	}
	if filter.GuestID != 0 {
		query += ` AND s.guest_id = ?`
		args = append(args, filter.GuestID)
	}
	query += ` ORDER BY r.number ASC`

	var items []*domain.ActiveStay
	err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error
	return items, err
}

func (r *repo) CountActive(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM stays WHERE status = ?`,
		domain.StatusActive,
	).Scan(&count).Error
	return count, err
}

func (r *repo) Finalize(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, reason domain.ClosedReason) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE stays
		 SET status = ?, check_out_at = ?, closed_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFinalized, at, reason, at, id, domain.StatusActive,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) AddCarriedBalance(ctx context.Context, db *gorm.DB, id snowflake.ID, amount int64, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE stays SET carried_balance = carried_balance + ?, updated_at = ? WHERE id = ?`,
		amount, at, id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	for _, stmt := range []string{
		`DELETE FROM stay_consumptions WHERE stay_id = ?`,
		`DELETE FROM stay_companions WHERE stay_id = ?`,
		`DELETE FROM stays WHERE id = ?`,
	} {
		if err := db.WithContext(ctx).Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) InsertCompanions(ctx context.Context, db *gorm.DB, stayID snowflake.ID, guestIDs []snowflake.ID, at time.Time) error {
	for _, guestID := range guestIDs {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO stay_companions (stay_id, guest_id, created_at) VALUES (?, ?, ?)`,
			stayID, guestID, at,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListCompanions(ctx context.Context, db *gorm.DB, stayID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT guest_id FROM stay_companions WHERE stay_id = ? ORDER BY created_at ASC, guest_id ASC`,
		stayID,
	).Scan(&ids).Error
	return ids, err
}

func (r *repo) InsertConsumption(ctx context.Context, db *gorm.DB, line *domain.Consumption) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO stay_consumptions (id, stay_id, service_id, quantity, selling_price, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.StayID,
		line.ServiceID,
		line.Quantity,
		line.SellingPrice,
		line.CreatedBy,
		line.CreatedAt,
	).Error
}

func (r *repo) FindConsumption(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Consumption, error) {
	var line domain.Consumption
	err := db.WithContext(ctx).Raw(
		`SELECT id, stay_id, service_id, quantity, selling_price, created_by, created_at
		 FROM stay_consumptions WHERE id = ?`,
		id,
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) DeleteConsumption(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM stay_consumptions WHERE id = ?`, id).Error
}

func (r *repo) ListConsumptions(ctx context.Context, db *gorm.DB, stayID snowflake.ID) ([]domain.ConsumptionDetail, error) {
	var lines []domain.ConsumptionDetail
	err := db.WithContext(ctx).Raw(
		`SELECT c.id, c.stay_id, c.service_id, c.quantity, c.selling_price, c.created_by, c.created_at,
		        sv.name AS service_name
		 FROM stay_consumptions c
		 JOIN services sv ON sv.id = c.service_id
		 WHERE c.stay_id = ?
		 ORDER BY c.created_at ASC, c.id ASC`,
		stayID,
	).Scan(&lines).Error
	return lines, err
}
