package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/option"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

const guestColumns = `id, first_name, last_name, nationality, identification_number, issued_in,
	civil_status, birth_date, age, profession, origin, phone, profile_complete, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, guest *domain.Guest) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO guests (`+guestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		guest.ID,
		guest.FirstName,
		guest.LastName,
		guest.Nationality,
		guest.IdentificationNumber,
		guest.IssuedIn,
		guest.CivilStatus,
		guest.BirthDate,
		guest.Age,
		guest.Profession,
		guest.Origin,
		guest.Phone,
		guest.ProfileComplete,
		guest.CreatedAt,
		guest.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, guest *domain.Guest) error {
	return db.WithContext(ctx).Exec(
		`UPDATE guests SET first_name = ?, last_name = ?, nationality = ?, identification_number = ?,
			issued_in = ?, civil_status = ?, birth_date = ?, age = ?, profession = ?, origin = ?,
			phone = ?, profile_complete = ?, updated_at = ?
		 WHERE id = ?`,
		guest.FirstName,
		guest.LastName,
		guest.Nationality,
		guest.IdentificationNumber,
		guest.IssuedIn,
		guest.CivilStatus,
		guest.BirthDate,
		guest.Age,
		guest.Profession,
		guest.Origin,
		guest.Phone,
		guest.ProfileComplete,
		guest.UpdatedAt,
		guest.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Guest, error) {
	var guest domain.Guest
	err := db.WithContext(ctx).Raw(
		`SELECT `+guestColumns+` FROM guests WHERE id = ?`,
		id,
	).Scan(&guest).Error
	if err != nil {
		return nil, err
	}
	if guest.ID == 0 {
		return nil, nil
	}
	return &guest, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Guest, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var guests []*domain.Guest
	err := db.WithContext(ctx).Raw(
		`SELECT `+guestColumns+` FROM guests WHERE id IN ? ORDER BY last_name, first_name`,
		ids,
	).Scan(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}

func (r *repo) FindByIdentification(ctx context.Context, db *gorm.DB, identificationNumber string) (*domain.Guest, error) {
	var guest domain.Guest
	err := db.WithContext(ctx).Raw(
		`SELECT `+guestColumns+` FROM guests WHERE identification_number = ?`,
		identificationNumber,
	).Scan(&guest).Error
	if err != nil {
		return nil, err
	}
	if guest.ID == 0 {
		return nil, nil
	}
	return &guest, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Guest, error) {
	var guests []*domain.Guest
	stmt := db.WithContext(ctx).Model(&domain.Guest{})
	if name := strings.ToLower(strings.TrimSpace(filter.Name)); name != "" {
		like := "%" + name + "%"
		stmt = stmt.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", like, like)
	}
	if filter.IdentificationNumber != "" {
		stmt = stmt.Where("identification_number = ?", filter.IdentificationNumber)
	}
	if filter.Complete != nil {
		stmt = stmt.Where("profile_complete = ?", *filter.Complete)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&guests).Error
	if err != nil {
		return nil, err
	}
	return guests, nil
}
