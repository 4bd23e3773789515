package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const BirthDateLayout = "2006-01-02"

type Guest struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	FirstName            string       `json:"first_name"`
	LastName             string       `json:"last_name"`
	Nationality          string       `json:"nationality"`
	IdentificationNumber string       `gorm:"not null;uniqueIndex" json:"identification_number"`
	IssuedIn             string       `json:"issued_in"`
	CivilStatus          string       `json:"civil_status"`
	BirthDate            *time.Time   `json:"birth_date,omitempty"`
	Age                  *int         `json:"age,omitempty"`
	Profession           string       `json:"profession"`
	Origin               string       `json:"origin"`
	Phone                string       `json:"phone,omitempty"`
	ProfileComplete      bool         `gorm:"not null;default:false" json:"profile_complete"`
	CreatedAt            time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"not null" json:"updated_at"`
}

func (Guest) TableName() string { return "guests" }

func (g Guest) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(g.FirstName) + " " + strings.TrimSpace(g.LastName))
}

// MissingFields lists the mandatory demographic fields that are blank.
// Either a birth date or an age satisfies the age requirement.
func MissingFields(g Guest) []string {
	var missing []string
	check := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	check("first_name", g.FirstName)
	check("last_name", g.LastName)
	check("nationality", g.Nationality)
	check("identification_number", g.IdentificationNumber)
	check("civil_status", g.CivilStatus)
	if g.BirthDate == nil && (g.Age == nil || *g.Age <= 0) {
		missing = append(missing, "birth_date")
	}
	check("profession", g.Profession)
	check("origin", g.Origin)
	return missing
}

// AgeAt returns the completed years between birth and at.
func AgeAt(birth, at time.Time) int {
	years := at.Year() - birth.Year()
	if at.Month() < birth.Month() || (at.Month() == birth.Month() && at.Day() < birth.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// Attributes carries caller-supplied guest data. Blank values are treated as
// "not provided" by updates.
type Attributes struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Nationality          string `json:"nationality"`
	IdentificationNumber string `json:"identification_number"`
	IssuedIn             string `json:"issued_in"`
	CivilStatus          string `json:"civil_status"`
	BirthDate            string `json:"birth_date"`
	Age                  *int   `json:"age"`
	Profession           string `json:"profession"`
	Origin               string `json:"origin"`
	Phone                string `json:"phone"`
}

type ListFilter struct {
	Name                 string
	IdentificationNumber string
	Complete             *bool
}
