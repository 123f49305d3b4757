package models

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ChargeBearer indicates who pays transaction charges.
type ChargeBearer string

const (
	ChargeBearerOUR ChargeBearer = "OUR"
	ChargeBearerSHA ChargeBearer = "SHA"
	ChargeBearerBEN ChargeBearer = "BEN"
)

// IsValid reports whether the bearer is one of the allowed codes.
func (b ChargeBearer) IsValid() bool {
	switch b {
	case ChargeBearerOUR, ChargeBearerSHA, ChargeBearerBEN:
		return true
	}
	return false
}

// ChargeDetails carries the charge bearer and, when stated, the charge
// amount and currency. Amount and currency must appear together.
type ChargeDetails struct {
	Bearer         ChargeBearer     `json:"bearer"`
	ChargeAmount   *decimal.Decimal `json:"charge_amount,omitempty"`
	ChargeCurrency string           `json:"charge_currency,omitempty"`
}

// Party is a customer record in one of its two wire variants. The concrete
// types are BICParty and NameParty; consumers switch exhaustively on them.
type Party interface {
	isParty()
	// PartyAccount returns the optional account line without its leading slash.
	PartyAccount() string
}

// BICParty is the institution-identified variant of a customer field.
type BICParty struct {
	Account string `json:"account,omitempty"`
	BIC     string `json:"bic"`
}

func (BICParty) isParty() {}

func (p BICParty) PartyAccount() string { return p.Account }

// NameParty is the name-and-address variant of a customer field.
type NameParty struct {
	Account string   `json:"account,omitempty"`
	Name    string   `json:"name"`
	Address []string `json:"address,omitempty"`
}

func (NameParty) isParty() {}

func (p NameParty) PartyAccount() string { return p.Account }

var bicPattern = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

// IsValidBIC reports whether s is a syntactically valid 8 or 11 character BIC.
func IsValidBIC(s string) bool {
	return bicPattern.MatchString(s)
}

// MT103Message is a parsed single-customer credit transfer.
type MT103Message struct {
	Message

	TransactionReference string          `json:"transaction_reference"`
	BankOperationCode    string          `json:"bank_operation_code"`
	ValueDate            time.Time       `json:"value_date"`
	Currency             string          `json:"currency"`
	Amount               decimal.Decimal `json:"amount"`
	OrderingCustomer     Party           `json:"ordering_customer"`
	BeneficiaryCustomer  Party           `json:"beneficiary_customer"`

	OriginalCurrency        string           `json:"original_currency,omitempty"`
	OriginalAmount          *decimal.Decimal `json:"original_amount,omitempty"`
	OrderingInstitution     string           `json:"ordering_institution,omitempty"`
	SendersCorrespondent    string           `json:"senders_correspondent,omitempty"`
	ReceiversCorrespondent  string           `json:"receivers_correspondent,omitempty"`
	IntermediaryInstitution string           `json:"intermediary_institution,omitempty"`
	AccountWithInstitution  string           `json:"account_with_institution,omitempty"`
	RemittanceInformation   []string         `json:"remittance_information,omitempty"`
	ChargeDetails           *ChargeDetails   `json:"charge_details,omitempty"`
	SendersCharges          string           `json:"senders_charges,omitempty"`
	ReceiversCharges        string           `json:"receivers_charges,omitempty"`
	SenderToReceiverInfo    []string         `json:"sender_to_receiver_info,omitempty"`
}

// NewMT103Message creates the base record the instant raw text is taken off
// the input queue.
func NewMT103Message(id, rawText string) *MT103Message {
	return &MT103Message{
		Message: Message{
			ID:          id,
			MessageType: "103",
			RawText:     rawText,
			ReceivedAt:  time.Now().UTC(),
			Status:      StatusReceived,
		},
	}
}
