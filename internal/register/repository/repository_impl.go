package repository

import (
	"context"
	"sort"

	"github.com/smallbiznis/frontdesk/internal/register/domain"
	"gorm.io/gorm"
)

const occupantColumns = `g.id, g.first_name, g.last_name, g.nationality, g.identification_number,
	g.issued_in, g.civil_status, g.birth_date, g.age, g.profession, g.origin, g.phone,
	g.profile_complete, g.created_at, g.updated_at,
	s.id AS stay_id, r.number AS room_number, s.check_in_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListOccupants(ctx context.Context, db *gorm.DB) ([]domain.Occupant, error) {
	var holders []domain.Occupant
	err := db.WithContext(ctx).Raw(
		`SELECT `+occupantColumns+`
		 FROM stays s
		 JOIN rooms r ON r.id = s.room_id
		 JOIN guests g ON g.id = s.guest_id
		 WHERE s.status = 'active'`,
	).Scan(&holders).Error
	if err != nil {
		return nil, err
	}

	var companions []domain.Occupant
	err = db.WithContext(ctx).Raw(
		`SELECT `+occupantColumns+`
		 FROM stays s
		 JOIN rooms r ON r.id = s.room_id
		 JOIN stay_companions c ON c.stay_id = s.id
		 JOIN guests g ON g.id = c.guest_id
		 WHERE s.status = 'active'`,
	).Scan(&companions).Error
	if err != nil {
		return nil, err
	}

	occupants := make([]domain.Occupant, 0, len(holders)+len(companions))
	for _, o := range holders {
		o.Role = domain.RoleHolder
		occupants = append(occupants, o)
	}
	for _, o := range companions {
		o.Role = domain.RoleCompanion
		occupants = append(occupants, o)
	}
	sort.SliceStable(occupants, func(i, j int) bool {
		a, b := occupants[i], occupants[j]
		if a.RoomNumber != b.RoomNumber {
			return a.RoomNumber < b.RoomNumber
		}
		if a.Role != b.Role {
			return a.Role == domain.RoleHolder
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.FirstName < b.FirstName
	})
	return occupants, nil
}
