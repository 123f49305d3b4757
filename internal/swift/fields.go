package swift

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"swift-gateway/pkg/models"
)

// PatternTable holds the compiled per-tag patterns used to cut fields out of
// block 4. It is built once and shared read-only by every extractor.
type PatternTable struct {
	byTag map[string]*regexp.Regexp
}

// Every pattern is anchored at line start and has two groups: the option
// letter (may be empty) and the raw value. Multi-line fields capture
// continuation lines greedily until the next ":tag:" marker.
func singleLine(tag, options string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^:` + tag + options + `:(.*)$`)
}

func multiLine(tag, options string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^:` + tag + options + `:(.*(?:\n[^:].*)*)`)
}

// NewPatternTable compiles the MT103 tag patterns.
func NewPatternTable() *PatternTable {
	return &PatternTable{byTag: map[string]*regexp.Regexp{
		"20":  singleLine("20", "()"),
		"23B": singleLine("23B", "()"),
		"32A": singleLine("32A", "()"),
		"33B": singleLine("33B", "()"),
		"50":  multiLine("50", "([AK]?)"),
		"52A": multiLine("52", "(A)"),
		"53":  multiLine("53", "([AB])"),
		"54A": multiLine("54", "(A)"),
		"56":  multiLine("56", "([ACD])"),
		"57":  multiLine("57", "([ABCD])"),
		"59":  multiLine("59", "(A?)"),
		"70":  multiLine("70", "()"),
		"71A": singleLine("71A", "()"),
		"71F": singleLine("71F", "()"),
		"71G": singleLine("71G", "()"),
		"72":  multiLine("72", "()"),
	}}
}

var defaultTable = NewPatternTable()

// DefaultPatternTable returns the shared immutable pattern table.
func DefaultPatternTable() *PatternTable {
	return defaultTable
}

// FieldExtractor turns block 4 text into typed MT103 fields.
type FieldExtractor struct {
	table *PatternTable
}

// NewFieldExtractor creates an extractor over the given pattern table.
func NewFieldExtractor(table *PatternTable) *FieldExtractor {
	return &FieldExtractor{table: table}
}

// Extract fills the typed fields of msg from block 4 text. Every matched
// value is also copied into the message's raw field list. Absence of an
// optional field is not an error; absence of a mandatory field returns a
// ParsingError naming the tag.
func (e *FieldExtractor) Extract(msg *models.MT103Message, block4 string) error {
	v, _, ok := e.match("20", block4)
	if !ok {
		return missingField("20")
	}
	ref := strings.TrimSpace(v)
	if ref == "" {
		return missingField("20")
	}
	msg.TransactionReference = ref
	msg.AddRawField("20", v)

	v, _, ok = e.match("23B", block4)
	if !ok {
		return missingField("23B")
	}
	msg.BankOperationCode = strings.TrimSpace(v)
	msg.AddRawField("23B", v)

	v, _, ok = e.match("32A", block4)
	if !ok {
		return missingField("32A")
	}
	date, currency, amount, perr := parse32A(v)
	if perr != nil {
		return perr
	}
	msg.ValueDate = date
	msg.Currency = currency
	msg.Amount = amount
	msg.AddRawField("32A", v)

	v, opt, ok := e.match("50", block4)
	if !ok {
		return missingField("50")
	}
	ordering, perr := parseParty("50", v)
	if perr != nil {
		return perr
	}
	msg.OrderingCustomer = ordering
	msg.AddRawField("50"+opt, v)

	v, opt, ok = e.match("59", block4)
	if !ok {
		return missingField("59")
	}
	beneficiary, perr := parseParty("59", v)
	if perr != nil {
		return perr
	}
	msg.BeneficiaryCustomer = beneficiary
	msg.AddRawField("59"+opt, v)

	if v, _, ok = e.match("33B", block4); ok {
		cur, amt, perr := parseCurrencyAmount("33B", v)
		if perr != nil {
			return perr
		}
		msg.OriginalCurrency = cur
		msg.OriginalAmount = &amt
		msg.AddRawField("33B", v)
	}

	if v, _, ok = e.match("52A", block4); ok {
		msg.OrderingInstitution = joinLines(v)
		msg.AddRawField("52A", v)
	}
	if v, opt, ok = e.match("53", block4); ok {
		msg.SendersCorrespondent = joinLines(v)
		msg.AddRawField("53"+opt, v)
	}
	if v, _, ok = e.match("54A", block4); ok {
		msg.ReceiversCorrespondent = joinLines(v)
		msg.AddRawField("54A", v)
	}
	if v, opt, ok = e.match("56", block4); ok {
		msg.IntermediaryInstitution = joinLines(v)
		msg.AddRawField("56"+opt, v)
	}
	if v, opt, ok = e.match("57", block4); ok {
		msg.AccountWithInstitution = joinLines(v)
		msg.AddRawField("57"+opt, v)
	}

	if v, _, ok = e.match("70", block4); ok {
		msg.RemittanceInformation = splitLines(v)
		msg.AddRawField("70", v)
	}

	if v, _, ok = e.match("71A", block4); ok {
		msg.ChargeDetails = &models.ChargeDetails{
			Bearer: models.ChargeBearer(strings.TrimSpace(v)),
		}
		msg.AddRawField("71A", v)
	}
	if v, _, ok = e.match("71F", block4); ok {
		msg.SendersCharges = strings.TrimSpace(v)
		msg.AddRawField("71F", v)
		if msg.ChargeDetails != nil {
			if cur, amt, perr := parseCurrencyAmount("71F", v); perr == nil {
				msg.ChargeDetails.ChargeCurrency = cur
				msg.ChargeDetails.ChargeAmount = &amt
			}
		}
	}
	if v, _, ok = e.match("71G", block4); ok {
		msg.ReceiversCharges = strings.TrimSpace(v)
		msg.AddRawField("71G", v)
	}

	if v, _, ok = e.match("72", block4); ok {
		msg.SenderToReceiverInfo = splitLines(v)
		msg.AddRawField("72", v)
	}

	return nil
}

func (e *FieldExtractor) match(key, text string) (value, option string, ok bool) {
	re, found := e.table.byTag[key]
	if !found {
		return "", "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return m[2], m[1], true
}

// parse32A splits a 32A value into value date (YYMMDD), currency and amount.
// The amount is written with a comma decimal separator on the wire.
func parse32A(v string) (time.Time, string, decimal.Decimal, *ParsingError) {
	v = strings.TrimSpace(v)
	if len(v) < 10 {
		return time.Time{}, "", decimal.Zero, fieldError("32A", "value too short for date, currency and amount", nil)
	}
	date, err := time.Parse("060102", v[:6])
	if err != nil {
		return time.Time{}, "", decimal.Zero, fieldError("32A", "invalid value date "+v[:6], err)
	}
	currency := v[6:9]
	amount, perr := parseAmount("32A", v[9:])
	if perr != nil {
		return time.Time{}, "", decimal.Zero, perr
	}
	return date, currency, amount, nil
}

// parseCurrencyAmount handles values shaped like "EUR1000,00".
func parseCurrencyAmount(tag, v string) (string, decimal.Decimal, *ParsingError) {
	v = strings.TrimSpace(v)
	if len(v) < 4 {
		return "", decimal.Zero, fieldError(tag, "value too short for currency and amount", nil)
	}
	amount, perr := parseAmount(tag, v[3:])
	if perr != nil {
		return "", decimal.Zero, perr
	}
	return v[:3], amount, nil
}

func parseAmount(tag, v string) (decimal.Decimal, *ParsingError) {
	normalized := strings.Replace(strings.TrimSpace(v), ",", ".", 1)
	amount, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fieldError(tag, "invalid amount "+v, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fieldError(tag, "amount must not be negative: "+v, nil)
	}
	return amount, nil
}

// parseParty recognizes the two customer sub-formats: an optional "/account"
// line followed by a lone BIC, or an optional "/account" line followed by a
// name line and address lines. The BIC form is tried first.
func parseParty(tag, raw string) (models.Party, *ParsingError) {
	lines := splitLines(raw)
	if len(lines) == 0 {
		return nil, missingField(tag)
	}

	account := ""
	rest := lines
	if strings.HasPrefix(lines[0], "/") {
		account = strings.TrimPrefix(lines[0], "/")
		rest = lines[1:]
	}

	if len(rest) == 1 && models.IsValidBIC(rest[0]) {
		return models.BICParty{Account: account, BIC: rest[0]}, nil
	}
	if len(rest) >= 1 {
		return models.NameParty{Account: account, Name: rest[0], Address: rest[1:]}, nil
	}
	return nil, missingField(tag)
}

func splitLines(v string) []string {
	var lines []string
	for _, line := range strings.Split(v, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func joinLines(v string) string {
	return strings.Join(splitLines(v), " ")
}
