package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	"github.com/smallbiznis/frontdesk/internal/register/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	sheetName      = "Register"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Policy    *config.PolicyHolder
	Repo      domain.Repository
	PDF       pdf.Provider
	FrontDesk *metrics.FrontDeskMetrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	policy    *config.PolicyHolder
	repo      domain.Repository
	pdf       pdf.Provider
	frontdesk *metrics.FrontDeskMetrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("register.service"),
		clock:     p.Clock,
		policy:    p.Policy,
		repo:      p.Repo,
		pdf:       p.PDF,
		frontdesk: p.FrontDesk,
	}
}

func (s *Service) Check(ctx context.Context) (domain.CheckResult, error) {
	occupants, err := s.repo.ListOccupants(ctx, s.db)
	if err != nil {
		return domain.CheckResult{}, err
	}
	blocking := s.blocking(occupants)
	return domain.CheckResult{
		CanGenerate: len(blocking) == 0,
		Blocking:    blocking,
	}, nil
}

func (s *Service) blocking(occupants []domain.Occupant) []domain.Blocking {
	blocking := make([]domain.Blocking, 0)
	for _, occupant := range occupants {
		missing := guestdomain.MissingFields(occupant.Guest)
		if len(missing) == 0 {
			continue
		}
		blocking = append(blocking, domain.Blocking{
			GuestID:    occupant.Guest.ID,
			Name:       occupant.Guest.FullName(),
			RoomNumber: occupant.RoomNumber,
			Role:       occupant.Role,
			Missing:    missing,
		})
	}
	s.frontdesk.SetRegisterBlocking(len(blocking))
	return blocking
}

func (s *Service) Build(ctx context.Context, date time.Time) (domain.Register, error) {
	occupants, err := s.repo.ListOccupants(ctx, s.db)
	if err != nil {
		return domain.Register{}, err
	}
	if blocking := s.blocking(occupants); len(blocking) > 0 {
		s.log.Info("register blocked", zap.Int("incomplete_guests", len(blocking)))
		return domain.Register{}, &domain.BlockedError{Blocking: blocking}
	}

	policy := s.policy.Get()
	if date.IsZero() {
		date = s.clock.Now()
	}
	date = date.In(policy.Location())

	entries := make([]domain.Entry, 0, len(occupants))
	for _, occupant := range occupants {
		guest := occupant.Guest
		entries = append(entries, domain.Entry{
			RoomNumber:           occupant.RoomNumber,
			GuestID:              guest.ID,
			Role:                 occupant.Role,
			FirstName:            guest.FirstName,
			LastName:             guest.LastName,
			Nationality:          guest.Nationality,
			IdentificationNumber: guest.IdentificationNumber,
			IssuedIn:             guest.IssuedIn,
			CivilStatus:          guest.CivilStatus,
			Age:                  ageOn(guest, date),
			Profession:           guest.Profession,
			Origin:               guest.Origin,
			CheckInAt:            occupant.CheckInAt.In(policy.Location()),
		})
	}
	return domain.Register{
		HotelName: policy.HotelName,
		Date:      date,
		Entries:   entries,
	}, nil
}

// ageOn prefers the birth date over a recorded age.
func ageOn(guest guestdomain.Guest, date time.Time) int {
	if guest.BirthDate != nil {
		return guestdomain.AgeAt(*guest.BirthDate, date)
	}
	if guest.Age != nil {
		return *guest.Age
	}
	return 0
}

var xlsxHeaders = []string{
	"Room", "Role", "Last name", "First name", "Nationality", "ID number",
	"Issued in", "Civil status", "Age", "Profession", "Origin", "Check-in",
}

func (s *Service) ExportXLSX(ctx context.Context, date time.Time) ([]byte, error) {
	register, err := s.Build(ctx, date)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close workbook", zap.Error(err))
		}
	}()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	title := fmt.Sprintf("%s - %s", register.HotelName, register.Date.Format(dateLayout))
	if err := f.SetCellValue(sheetName, "A1", title); err != nil {
		return nil, err
	}
	for i, header := range xlsxHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 3)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, err
		}
	}
	for i, entry := range register.Entries {
		row := []any{
			entry.RoomNumber,
			entry.Role,
			entry.LastName,
			entry.FirstName,
			entry.Nationality,
			entry.IdentificationNumber,
			entry.IssuedIn,
			entry.CivilStatus,
			entry.Age,
			entry.Profession,
			entry.Origin,
			entry.CheckInAt.Format(dateTimeLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(sheetName, "A", "L", 16); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) ExportPDF(ctx context.Context, date time.Time) ([]byte, error) {
	register, err := s.Build(ctx, date)
	if err != nil {
		return nil, err
	}
	doc := pdf.RegisterDocument{
		HotelName: register.HotelName,
		Date:      register.Date.Format(dateLayout),
		Entries:   make([]pdf.RegisterEntry, 0, len(register.Entries)),
	}
	for _, entry := range register.Entries {
		age := ""
		if entry.Age > 0 {
			age = strconv.Itoa(entry.Age)
		}
		doc.Entries = append(doc.Entries, pdf.RegisterEntry{
			RoomNumber:           entry.RoomNumber,
			GuestName:            entry.FullName(),
			Role:                 entry.Role,
			Nationality:          entry.Nationality,
			IdentificationNumber: entry.IdentificationNumber,
			IssuedIn:             entry.IssuedIn,
			CivilStatus:          entry.CivilStatus,
			Age:                  age,
			Profession:           entry.Profession,
			Origin:               entry.Origin,
			CheckInAt:            entry.CheckInAt.Format(dateTimeLayout),
		})
	}
	return s.pdf.RenderRegister(ctx, doc)
}
