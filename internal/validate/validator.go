// Package validate checks business rules on already-parsed MT103 messages.
// Validation is a pure function: it never mutates the message and reports
// every violation it finds instead of stopping at the first.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"swift-gateway/pkg/models"
)

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
var operationCodeRe = regexp.MustCompile(`^[A-Z]{4}$`)

// Violation is a single broken rule, naming the field and the reason.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Result is the outcome of validating one message.
type Result struct {
	Violations []Violation `json:"violations,omitempty"`
}

// Valid reports whether no rule was broken.
func (r Result) Valid() bool {
	return len(r.Violations) == 0
}

// Detail renders the violations as one human-readable line.
func (r Result) Detail() string {
	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Reason))
	}
	return strings.Join(parts, "; ")
}

// Err returns a ValidationError when the result holds violations, nil otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &ValidationError{Violations: r.Violations}
}

// ValidationError is a business-rule failure raised after a successful parse.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return "validation failed: " + Result{Violations: e.Violations}.Detail()
}

// IsValidationError checks whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate applies every MT103 business rule to msg.
func Validate(msg *models.MT103Message) Result {
	var violations []Violation
	add := func(field, reason string) {
		violations = append(violations, Violation{Field: field, Reason: reason})
	}

	if msg.TransactionReference == "" {
		add("transactionReference", "must not be empty")
	} else if len(msg.TransactionReference) > 16 {
		add("transactionReference", fmt.Sprintf("must be at most 16 characters, got %d", len(msg.TransactionReference)))
	}

	if !operationCodeRe.MatchString(msg.BankOperationCode) {
		add("bankOperationCode", fmt.Sprintf("must be a 4-letter code, got %q", msg.BankOperationCode))
	}

	if msg.ValueDate.IsZero() {
		add("valueDate", "must be set")
	}

	if !currencyRe.MatchString(msg.Currency) {
		add("currency", fmt.Sprintf("must be a 3-letter ISO code, got %q", msg.Currency))
	}

	if !msg.Amount.IsPositive() {
		add("amount", fmt.Sprintf("must be positive, got %s", msg.Amount.String()))
	}

	if msg.OriginalCurrency != "" {
		if !currencyRe.MatchString(msg.OriginalCurrency) {
			add("originalCurrency", fmt.Sprintf("must be a 3-letter ISO code, got %q", msg.OriginalCurrency))
		} else if msg.OriginalCurrency == msg.Currency {
			add("originalCurrency", "must differ from the settlement currency")
		}
	}

	if cd := msg.ChargeDetails; cd != nil {
		if !cd.Bearer.IsValid() {
			add("chargeDetails", fmt.Sprintf("charge bearer must be OUR, SHA or BEN, got %q", cd.Bearer))
		}
		hasAmount := cd.ChargeAmount != nil
		hasCurrency := cd.ChargeCurrency != ""
		if hasAmount != hasCurrency {
			add("chargeDetails", "charge amount and charge currency must appear together")
		}
		if hasCurrency && !currencyRe.MatchString(cd.ChargeCurrency) {
			add("chargeDetails", fmt.Sprintf("charge currency must be a 3-letter ISO code, got %q", cd.ChargeCurrency))
		}
	}

	validateParty(msg.OrderingCustomer, "orderingCustomer", add)
	validateParty(msg.BeneficiaryCustomer, "beneficiaryCustomer", add)

	return Result{Violations: violations}
}

func validateParty(party models.Party, field string, add func(field, reason string)) {
	switch p := party.(type) {
	case nil:
		add(field, "customer record is required")
	case models.BICParty:
		if !models.IsValidBIC(p.BIC) {
			add(field, fmt.Sprintf("invalid BIC %q", p.BIC))
		}
	case models.NameParty:
		if p.Name == "" && len(p.Address) == 0 {
			add(field, "name or address is required")
		}
	default:
		add(field, "unknown customer record variant")
	}
}
