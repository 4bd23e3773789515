package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	guestdomain "github.com/smallbiznis/frontdesk/internal/guest/domain"
)

const (
	RoleHolder    = "holder"
	RoleCompanion = "companion"
)

// Occupant is one guest sleeping in an occupied room.
type Occupant struct {
	StayID     snowflake.ID
	RoomNumber string
	Role       string
	CheckInAt  time.Time
	guestdomain.Guest
}

type Blocking struct {
	GuestID    snowflake.ID `json:"guest_id"`
	Name       string       `json:"name"`
	RoomNumber string       `json:"room_number"`
	Role       string       `json:"role"`
	Missing    []string     `json:"missing"`
}

type CheckResult struct {
	CanGenerate bool       `json:"can_generate"`
	Blocking    []Blocking `json:"blocking"`
}

type Entry struct {
	RoomNumber           string       `json:"room_number"`
	GuestID              snowflake.ID `json:"guest_id"`
	Role                 string       `json:"role"`
	FirstName            string       `json:"first_name"`
	LastName             string       `json:"last_name"`
	Nationality          string       `json:"nationality"`
	IdentificationNumber string       `json:"identification_number"`
	IssuedIn             string       `json:"issued_in"`
	CivilStatus          string       `json:"civil_status"`
	Age                  int          `json:"age"`
	Profession           string       `json:"profession"`
	Origin               string       `json:"origin"`
	CheckInAt            time.Time    `json:"check_in_at"`
}

func (e Entry) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type Register struct {
	HotelName string    `json:"hotel_name"`
	Date      time.Time `json:"date"`
	Entries   []Entry   `json:"entries"`
}

var ErrRegisterBlocked = errors.New("register_blocked")

// BlockedError carries the guests whose incomplete profiles hold the
// register back.
type BlockedError struct {
	Blocking []Blocking
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %d incomplete guest profile(s)", ErrRegisterBlocked.Error(), len(e.Blocking))
}

func (e *BlockedError) Is(target error) bool {
	return target == ErrRegisterBlocked
}
