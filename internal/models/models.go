package models

import (
	"fmt"
	"time"
)

// Card represents a single-use gift-card code in the pool
type Card struct {
	ID          int64     `db:"id" json:"id"`
	Sender      string    `db:"sender" json:"sender,omitempty"`
	Subject     string    `db:"subject" json:"subject,omitempty"`
	CardType    string    `db:"card_type" json:"card_type"`
	DtStr       string    `db:"dt_str" json:"dt_str,omitempty"`
	Code        string    `db:"code" json:"code"`
	OrderNumber string    `db:"order_number" json:"order_number,omitempty"`
	Amount      int64     `db:"amount" json:"amount"`
	ExtraNumber string    `db:"extra_number" json:"extra_number,omitempty"`
	UsageType   string    `db:"usage_type" json:"usage_type"`
	Status      string    `db:"status" json:"status"`
	CreateTime  time.Time `db:"create_time" json:"create_time"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Card statuses. UNUSED -> RESERVED -> {USED | ERROR}, or RESERVED -> UNUSED
// when the reservation times out. USED and ERROR are terminal.
const (
	StatusUnused   = "UNUSED"
	StatusUsed     = "USED"
	StatusError    = "ERROR"
	StatusReserved = "RESERVED"
)

// Card types
const (
	CardTypeAmazon = "AMAZON"
	CardTypeApple  = "APPLE"
	CardTypeGoogle = "GOOGLE"
)

// Usage types, set on terminal transition
const (
	UsageTypeUnset       = "UNSET"
	UsageTypeAmazonTopup = "AMAZON_TOPUP"
	UsageTypePhoneTopup  = "PHONE_TOPUP"
	UsageTypeAcceptance  = "ACCEPTANCE"
)

// Legacy numeric codes used by the partner platform and the ingestion
// pipeline. This is the single canonical table; nothing else in the
// codebase is allowed to string-match these codes.
var (
	cardTypeByCode = map[string]string{
		"0": CardTypeAmazon,
		"1": CardTypeApple,
		"2": CardTypeGoogle,
	}

	usageTypeByCode = map[string]string{
		"-1": UsageTypeUnset,
		"0":  UsageTypeAmazonTopup,
		"1":  UsageTypePhoneTopup,
		"2":  UsageTypeAcceptance,
	}

	statusByCode = map[string]string{
		"0": StatusUnused,
		"1": StatusUsed,
		"2": StatusError,
		"3": StatusReserved,
	}

	canonicalCardTypes = map[string]bool{
		CardTypeAmazon: true,
		CardTypeApple:  true,
		CardTypeGoogle: true,
	}

	canonicalUsageTypes = map[string]bool{
		UsageTypeUnset:       true,
		UsageTypeAmazonTopup: true,
		UsageTypePhoneTopup:  true,
		UsageTypeAcceptance:  true,
	}

	canonicalStatuses = map[string]bool{
		StatusUnused:   true,
		StatusUsed:     true,
		StatusError:    true,
		StatusReserved: true,
	}
)

// ParseCardType accepts either a canonical name or a legacy numeric code
func ParseCardType(s string) (string, error) {
	if canonicalCardTypes[s] {
		return s, nil
	}
	if t, ok := cardTypeByCode[s]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown card type: %q", s)
}

// ParseUsageType accepts either a canonical name or a legacy numeric code
func ParseUsageType(s string) (string, error) {
	if canonicalUsageTypes[s] {
		return s, nil
	}
	if u, ok := usageTypeByCode[s]; ok {
		return u, nil
	}
	return "", fmt.Errorf("unknown usage type: %q", s)
}

// ParseStatus accepts either a canonical name or a legacy numeric code
func ParseStatus(s string) (string, error) {
	if canonicalStatuses[s] {
		return s, nil
	}
	if st, ok := statusByCode[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown status: %q", s)
}

// IsTerminalStatus reports whether a status permits no further transitions
func IsTerminalStatus(status string) bool {
	return status == StatusUsed || status == StatusError
}

// CardFilter narrows list/sum/export queries over the pool
type CardFilter struct {
	Status      string
	CardType    string
	Code        string
	Sender      string
	OrderNumber string
	UsageType   string
	BeginTime   *time.Time
	EndTime     *time.Time
	Limit       int
	Offset      int
}
