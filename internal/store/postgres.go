package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"swift-gateway/pkg/models"
)

// PostgresStore is the pgx-backed implementation of MessageStore. Amounts are
// stored as text so the wire precision survives the round trip unchanged.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresPool opens a pgx pool against databaseURL.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the messages table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS mt103_messages (
			id                       UUID PRIMARY KEY,
			transaction_reference    TEXT NOT NULL,
			bank_operation_code      TEXT NOT NULL,
			value_date               DATE NOT NULL,
			currency                 TEXT NOT NULL,
			amount                   TEXT NOT NULL,
			ordering_customer        JSONB NOT NULL,
			beneficiary_customer     JSONB NOT NULL,
			original_currency        TEXT,
			original_amount          TEXT,
			ordering_institution     TEXT,
			senders_correspondent    TEXT,
			receivers_correspondent  TEXT,
			intermediary_institution TEXT,
			account_with_institution TEXT,
			remittance_information   JSONB,
			charge_details           JSONB,
			senders_charges          TEXT,
			receivers_charges        TEXT,
			sender_to_receiver_info  JSONB,
			raw_text                 TEXT NOT NULL,
			raw_fields               JSONB NOT NULL,
			status                   TEXT NOT NULL,
			received_at              TIMESTAMPTZ NOT NULL,
			created_at               TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveMessage inserts msg, treating an existing id as an already-successful
// save so persistence retries cannot duplicate records.
func (s *PostgresStore) SaveMessage(ctx context.Context, msg *models.MT103Message) (string, error) {
	ordering, err := encodeParty(msg.OrderingCustomer)
	if err != nil {
		return "", fmt.Errorf("encode ordering customer: %w", err)
	}
	beneficiary, err := encodeParty(msg.BeneficiaryCustomer)
	if err != nil {
		return "", fmt.Errorf("encode beneficiary customer: %w", err)
	}
	rawFields, err := json.Marshal(msg.RawFields)
	if err != nil {
		return "", fmt.Errorf("encode raw fields: %w", err)
	}

	var chargeDetails []byte
	if msg.ChargeDetails != nil {
		if chargeDetails, err = json.Marshal(msg.ChargeDetails); err != nil {
			return "", fmt.Errorf("encode charge details: %w", err)
		}
	}
	var remittance, senderInfo []byte
	if msg.RemittanceInformation != nil {
		if remittance, err = json.Marshal(msg.RemittanceInformation); err != nil {
			return "", fmt.Errorf("encode remittance information: %w", err)
		}
	}
	if msg.SenderToReceiverInfo != nil {
		if senderInfo, err = json.Marshal(msg.SenderToReceiverInfo); err != nil {
			return "", fmt.Errorf("encode sender to receiver info: %w", err)
		}
	}
	var originalAmount *string
	if msg.OriginalAmount != nil {
		v := msg.OriginalAmount.String()
		originalAmount = &v
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO mt103_messages (
			id, transaction_reference, bank_operation_code, value_date,
			currency, amount, ordering_customer, beneficiary_customer,
			original_currency, original_amount, ordering_institution,
			senders_correspondent, receivers_correspondent,
			intermediary_institution, account_with_institution,
			remittance_information, charge_details, senders_charges,
			receivers_charges, sender_to_receiver_info, raw_text, raw_fields,
			status, received_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24
		) ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.TransactionReference, msg.BankOperationCode, msg.ValueDate,
		msg.Currency, msg.Amount.String(), ordering, beneficiary,
		nullable(msg.OriginalCurrency), originalAmount, nullable(msg.OrderingInstitution),
		nullable(msg.SendersCorrespondent), nullable(msg.ReceiversCorrespondent),
		nullable(msg.IntermediaryInstitution), nullable(msg.AccountWithInstitution),
		remittance, chargeDetails, nullable(msg.SendersCharges),
		nullable(msg.ReceiversCharges), senderInfo, msg.RawText, rawFields,
		string(models.StatusPersisted), msg.ReceivedAt,
	)
	if err != nil {
		return "", fmt.Errorf("save message %s: %w", msg.ID, err)
	}
	return msg.ID, nil
}

// GetByID loads one message or returns ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*models.MT103Message, error) {
	row := s.db.QueryRow(ctx, selectColumns+` FROM mt103_messages WHERE id = $1`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return msg, nil
}

// GetByFilter loads messages matching filter, oldest first.
func (s *PostgresStore) GetByFilter(ctx context.Context, filter Filter) ([]*models.MT103Message, error) {
	query := selectColumns + ` FROM mt103_messages`
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Currency != "" {
		args = append(args, filter.Currency)
		clauses = append(clauses, fmt.Sprintf("currency = $%d", len(args)))
	}
	if filter.Reference != "" {
		args = append(args, filter.Reference)
		clauses = append(clauses, fmt.Sprintf("transaction_reference = $%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY received_at"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []*models.MT103Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a stored message's status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE mt103_messages SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update status for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `SELECT
	id, transaction_reference, bank_operation_code, value_date, currency,
	amount, ordering_customer, beneficiary_customer, original_currency,
	original_amount, ordering_institution, senders_correspondent,
	receivers_correspondent, intermediary_institution,
	account_with_institution, remittance_information, charge_details,
	senders_charges, receivers_charges, sender_to_receiver_info, raw_text,
	raw_fields, status, received_at`

func scanMessage(row pgx.Row) (*models.MT103Message, error) {
	var (
		msg            models.MT103Message
		amount         string
		ordering       []byte
		beneficiary    []byte
		origCurrency   *string
		origAmount     *string
		ordInstitution *string
		sendersCorr    *string
		receiversCorr  *string
		intermediary   *string
		accountWith    *string
		remittance     []byte
		chargeDetails  []byte
		sendersCharges *string
		recvCharges    *string
		senderInfo     []byte
		rawFields      []byte
		status         string
		valueDate      time.Time
	)

	err := row.Scan(
		&msg.ID, &msg.TransactionReference, &msg.BankOperationCode, &valueDate,
		&msg.Currency, &amount, &ordering, &beneficiary, &origCurrency,
		&origAmount, &ordInstitution, &sendersCorr, &receiversCorr,
		&intermediary, &accountWith, &remittance, &chargeDetails,
		&sendersCharges, &recvCharges, &senderInfo, &msg.RawText, &rawFields,
		&status, &msg.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.MessageType = "103"
	msg.ValueDate = valueDate
	msg.Status = models.Status(status)

	if msg.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	if msg.OrderingCustomer, err = decodeParty(ordering); err != nil {
		return nil, fmt.Errorf("decode ordering customer: %w", err)
	}
	if msg.BeneficiaryCustomer, err = decodeParty(beneficiary); err != nil {
		return nil, fmt.Errorf("decode beneficiary customer: %w", err)
	}
	if origCurrency != nil {
		msg.OriginalCurrency = *origCurrency
	}
	if origAmount != nil {
		amt, err := decimal.NewFromString(*origAmount)
		if err != nil {
			return nil, fmt.Errorf("decode original amount: %w", err)
		}
		msg.OriginalAmount = &amt
	}
	msg.OrderingInstitution = deref(ordInstitution)
	msg.SendersCorrespondent = deref(sendersCorr)
	msg.ReceiversCorrespondent = deref(receiversCorr)
	msg.IntermediaryInstitution = deref(intermediary)
	msg.AccountWithInstitution = deref(accountWith)
	msg.SendersCharges = deref(sendersCharges)
	msg.ReceiversCharges = deref(recvCharges)

	if len(remittance) > 0 {
		if err := json.Unmarshal(remittance, &msg.RemittanceInformation); err != nil {
			return nil, fmt.Errorf("decode remittance information: %w", err)
		}
	}
	if len(chargeDetails) > 0 {
		msg.ChargeDetails = &models.ChargeDetails{}
		if err := json.Unmarshal(chargeDetails, msg.ChargeDetails); err != nil {
			return nil, fmt.Errorf("decode charge details: %w", err)
		}
	}
	if len(senderInfo) > 0 {
		if err := json.Unmarshal(senderInfo, &msg.SenderToReceiverInfo); err != nil {
			return nil, fmt.Errorf("decode sender to receiver info: %w", err)
		}
	}
	if err := json.Unmarshal(rawFields, &msg.RawFields); err != nil {
		return nil, fmt.Errorf("decode raw fields: %w", err)
	}
	return &msg, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
