package domain

import "strings"

type Status string

const (
	StatusAvailable   Status = "available"
	StatusOccupied    Status = "occupied"
	StatusReserved    Status = "reserved"
	StatusCleaning    Status = "cleaning"
	StatusMaintenance Status = "maintenance"
)

// disabledLiteral is accepted on input but maps onto Room.Active.
const disabledLiteral = "disabled"

var statuses = map[Status]struct{}{
	StatusAvailable:   {},
	StatusOccupied:    {},
	StatusReserved:    {},
	StatusCleaning:    {},
	StatusMaintenance: {},
}

var legacyStatuses = map[string]string{
	"libre":         string(StatusAvailable),
	"disponible":    string(StatusAvailable),
	"free":          string(StatusAvailable),
	"vacant":        string(StatusAvailable),
	"ocupado":       string(StatusOccupied),
	"ocupada":       string(StatusOccupied),
	"reservado":     string(StatusReserved),
	"reservada":     string(StatusReserved),
	"limpieza":      string(StatusCleaning),
	"en limpieza":   string(StatusCleaning),
	"dirty":         string(StatusCleaning),
	"sucia":         string(StatusCleaning),
	"mantenimiento": string(StatusMaintenance),
	"deshabilitado": disabledLiteral,
	"deshabilitada": disabledLiteral,
	"inactive":      disabledLiteral,
	"inactivo":      disabledLiteral,
}

// ParseStatus maps a raw status literal onto the canonical enumeration.
// disabled reports that the literal means "take the room out of service",
// which is expressed through the active flag rather than a status.
func ParseStatus(raw string, synonyms map[string]string) (status Status, disabled bool, err error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", false, ErrInvalidStatus
	}
	if mapped, ok := lookupSynonym(synonyms, key); ok {
		key = mapped
	} else if mapped, ok := legacyStatuses[key]; ok {
		key = mapped
	}

	if key == disabledLiteral {
		return "", true, nil
	}
	if _, ok := statuses[Status(key)]; !ok {
		return "", false, ErrInvalidStatus
	}
	return Status(key), false, nil
}

func lookupSynonym(synonyms map[string]string, key string) (string, bool) {
	for raw, canonical := range synonyms {
		if strings.ToLower(strings.TrimSpace(raw)) == key {
			return strings.ToLower(strings.TrimSpace(canonical)), true
		}
	}
	return "", false
}

func (s Status) Valid() bool {
	_, ok := statuses[s]
	return ok
}
