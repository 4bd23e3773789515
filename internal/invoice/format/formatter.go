package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)

const (
	DefaultInvoiceTemplate = "FAC-{YYYY}{MM}{DD}-{SEQ6}"
	DefaultReceiptTemplate = "REC-{YYYY}{MM}{DD}-{SEQ6}"
)

// FormatDocumentNumber renders a document number from a template such as
// "FAC-{YYYY}{MM}{DD}-{SEQ6}". Supported tokens are {YYYY}, {YY}, {MM}, {DD},
// {SEQ} and {SEQn} (zero padded to n digits).
func FormatDocumentNumber(template string, issuedAt time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", fmt.Errorf("document number template is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid document sequence: %d", seq)
	}

	out := strings.NewReplacer(
		"{YYYY}", issuedAt.Format("2006"),
		"{YY}", issuedAt.Format("06"),
		"{MM}", issuedAt.Format("01"),
		"{DD}", issuedAt.Format("02"),
		"{SEQ}", strconv.FormatInt(seq, 10),
	).Replace(template)

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		width, err := strconv.Atoi(seqPadRe.FindStringSubmatch(m)[1])
		if err != nil || width <= 0 {
			return m
		}
		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unresolved token in document number: %s", out)
	}
	return out, nil
}
