package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/elee1766/mydrawer/src/aisdk"
)

// JSONAttachments is an attachment list stored as a JSON array.
type JSONAttachments []aisdk.Attachment

// Scan implements the sql.Scanner interface for JSONAttachments
func (j *JSONAttachments) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into JSONAttachments: %w", err)
	}
	if len(raw) == 0 || string(raw) == "[]" || string(raw) == "null" {
		*j = JSONAttachments{}
		return nil
	}
	return json.Unmarshal(raw, (*[]aisdk.Attachment)(j))
}

// Value implements the driver.Valuer interface for JSONAttachments
func (j JSONAttachments) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]aisdk.Attachment(j))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MessageMetadata is stored as a JSON object.
type MessageMetadata struct {
	Model      string  `json:"model,omitempty"`
	TokenCount int     `json:"tokenCount,omitempty"`
	Cost       float64 `json:"cost,omitempty"`
}

// Scan implements the sql.Scanner interface for MessageMetadata
func (m *MessageMetadata) Scan(value interface{}) error {
	raw, err := jsonBytes(value)
	if err != nil {
		return fmt.Errorf("cannot scan into MessageMetadata: %w", err)
	}
	*m = MessageMetadata{}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, m)
}

// Value implements the driver.Valuer interface for MessageMetadata
func (m MessageMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}
