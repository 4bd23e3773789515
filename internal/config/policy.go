package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	RateModeLive   = "live"
	RateModeFrozen = "frozen"
)

// Policy holds the front-desk business knobs that operators tune without a
// redeploy.
type Policy struct {
	CancelGraceMinutes    int            `mapstructure:"cancel_grace_minutes"`
	RateMode              string         `mapstructure:"rate_mode"`
	Currency              string         `mapstructure:"currency"`
	Timezone              string         `mapstructure:"timezone"`
	InvoiceNumberTemplate string         `mapstructure:"invoice_number_template"`
	ReceiptNumberTemplate string         `mapstructure:"receipt_number_template"`
	QRBanks               []string       `mapstructure:"qr_banks"`
	StatusSynonyms        StatusSynonyms `mapstructure:"status_synonyms"`
	HotelName             string         `mapstructure:"hotel_name"`
}

// StatusSynonyms maps legacy status literals onto canonical values.
type StatusSynonyms struct {
	Room        map[string]string `mapstructure:"room"`
	Stay        map[string]string `mapstructure:"stay"`
	Reservation map[string]string `mapstructure:"reservation"`
}

func DefaultPolicy() Policy {
	return Policy{
		CancelGraceMinutes:    10,
		RateMode:              RateModeLive,
		Currency:              "BOB",
		Timezone:              "UTC",
		InvoiceNumberTemplate: "FAC-{YYYY}{MM}{DD}-{SEQ6}",
		ReceiptNumberTemplate: "REC-{YYYY}{MM}{DD}-{SEQ6}",
		HotelName:             "Front Desk",
	}
}

// CancelGrace returns the window after check-in during which an assignment
// can be cancelled outright.
func (p Policy) CancelGrace() time.Duration {
	return time.Duration(p.CancelGraceMinutes) * time.Minute
}

// Location resolves the configured timezone, falling back to UTC.
func (p Policy) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(p.Timezone))
	if err != nil || strings.TrimSpace(p.Timezone) == "" {
		return time.UTC
	}
	return loc
}

// FrozenRates reports whether stays are billed at the rate captured on check-in.
func (p Policy) FrozenRates() bool {
	return p.RateMode == RateModeFrozen
}

// AcceptsQRBank reports whether bank is a valid QR channel.
func (p Policy) AcceptsQRBank(bank string) bool {
	bank = strings.TrimSpace(bank)
	if bank == "" {
		return false
	}
	if len(p.QRBanks) == 0 {
		return true
	}
	for _, candidate := range p.QRBanks {
		if strings.EqualFold(strings.TrimSpace(candidate), bank) {
			return true
		}
	}
	return false
}

// PolicyHolder serves the current policy and swaps it atomically on reload.
type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(cfg Config, log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("frontdesk")
	v.SetConfigType("yml")
	if cfg.PolicyPath != "" {
		v.AddConfigPath(cfg.PolicyPath)
	}
	v.AddConfigPath("/etc/frontdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FRONTDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.cancel_grace_minutes", defaults.CancelGraceMinutes)
	v.SetDefault("policy.rate_mode", defaults.RateMode)
	v.SetDefault("policy.currency", defaults.Currency)
	v.SetDefault("policy.timezone", defaults.Timezone)
	v.SetDefault("policy.invoice_number_template", defaults.InvoiceNumberTemplate)
	v.SetDefault("policy.receipt_number_template", defaults.ReceiptNumberTemplate)
	v.SetDefault("policy.hotel_name", defaults.HotelName)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	policy, err := readPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)
	log = log.Named("config.policy")

	if fileFound && cfg.PolicyWatch {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readPolicy(v)
			if err != nil {
				log.Warn("invalid policy ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

// readPolicy resolves leaf keys one by one so that defaults apply to keys a
// partial policy file leaves out.
func readPolicy(v *viper.Viper) (Policy, error) {
	policy := Policy{
		CancelGraceMinutes:    v.GetInt("policy.cancel_grace_minutes"),
		RateMode:              v.GetString("policy.rate_mode"),
		Currency:              v.GetString("policy.currency"),
		Timezone:              v.GetString("policy.timezone"),
		InvoiceNumberTemplate: v.GetString("policy.invoice_number_template"),
		ReceiptNumberTemplate: v.GetString("policy.receipt_number_template"),
		QRBanks:               v.GetStringSlice("policy.qr_banks"),
		HotelName:             v.GetString("policy.hotel_name"),
	}
	if v.IsSet("policy.status_synonyms") {
		if err := v.UnmarshalKey("policy.status_synonyms", &policy.StatusSynonyms); err != nil {
			return Policy{}, err
		}
	}
	policy = normalizePolicy(policy)
	if err := ValidatePolicy(policy); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func normalizePolicy(p Policy) Policy {
	p.RateMode = strings.ToLower(strings.TrimSpace(p.RateMode))
	if p.RateMode == "" {
		p.RateMode = RateModeLive
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	return p
}

func ValidatePolicy(p Policy) error {
	if p.CancelGraceMinutes < 0 {
		return errors.New("policy.cancel_grace_minutes cannot be negative")
	}
	switch p.RateMode {
	case RateModeLive, RateModeFrozen:
	default:
		return fmt.Errorf("policy.rate_mode %q is not supported", p.RateMode)
	}
	if strings.TrimSpace(p.InvoiceNumberTemplate) == "" || strings.TrimSpace(p.ReceiptNumberTemplate) == "" {
		return errors.New("policy number templates cannot be empty")
	}
	if _, err := time.LoadLocation(strings.TrimSpace(p.Timezone)); err != nil {
		return fmt.Errorf("policy.timezone: %w", err)
	}
	return nil
}
