package models

import "time"

// Status tracks a message through its processing lifecycle.
type Status string

const (
	StatusReceived     Status = "RECEIVED"
	StatusParsed       Status = "PARSED"
	StatusValidated    Status = "VALIDATED"
	StatusPersisted    Status = "PERSISTED"
	StatusCompleted    Status = "COMPLETED"
	StatusDeadLettered Status = "DEAD_LETTERED"
)

// Stage names the pipeline step a failure occurred in.
type Stage string

const (
	StageParsing    Stage = "parsing"
	StageValidating Stage = "validating"
	StagePersisting Stage = "persisting"
	StageRouting    Stage = "routing"
)

// RawField is one extracted tag/value pair, kept in wire order.
type RawField struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// Message is the base for all SWIFT messages in the system. The raw field
// list carries every matched block and field for audit and diagnostics,
// independent of the typed fields on concrete message types.
type Message struct {
	ID          string     `json:"id"`
	MessageType string     `json:"message_type"`
	RawText     string     `json:"raw_text"`
	ReceivedAt  time.Time  `json:"received_at"`
	RawFields   []RawField `json:"raw_fields"`
	Status      Status     `json:"status"`
}

// AddRawField appends a tag/value pair preserving insertion order.
func (m *Message) AddRawField(tag, value string) {
	m.RawFields = append(m.RawFields, RawField{Tag: tag, Value: value})
}

// RawField returns the first value recorded for tag.
func (m *Message) RawField(tag string) (string, bool) {
	for _, f := range m.RawFields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// ProcessingResult is the terminal outcome of one pipeline pass.
type ProcessingResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Stage     Stage  `json:"stage,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// DeadLetterEnvelope is the fixed shape placed on the dead-letter queue.
type DeadLetterEnvelope struct {
	RawPayload string    `json:"raw_payload"`
	Stage      Stage     `json:"stage"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}
