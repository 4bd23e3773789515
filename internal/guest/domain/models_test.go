package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMissingFields(t *testing.T) {
	age := 34
	complete := Guest{
		FirstName:            "Ana",
		LastName:             "Quispe",
		Nationality:          "Boliviana",
		IdentificationNumber: "4455667",
		CivilStatus:          "soltera",
		Age:                  &age,
		Profession:           "Ingeniera",
		Origin:               "Cochabamba",
	}
	assert.Empty(t, MissingFields(complete))

	partial := complete
	partial.Age = nil
	partial.Profession = "  "
	assert.Equal(t, []string{"birth_date", "profession"}, MissingFields(partial))
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 33, AgeAt(birth, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 34, AgeAt(birth, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))
}
