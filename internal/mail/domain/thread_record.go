package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringArray stores a string slice as a JSON text column.
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(a))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *StringArray) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan StringArray: unsupported type %T", value)
	}
	if len(raw) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(raw, a)
}

// ThreadRecord is the stored snapshot of an ingested thread and its last classification.
type ThreadRecord struct {
	ID               string      `json:"id" gorm:"primaryKey"`
	ThreadID         string      `json:"thread_id" gorm:"uniqueIndex;not null"`
	MessageID        string      `json:"message_id"`
	Subject          string      `json:"subject" gorm:"type:text"`
	Snippet          string      `json:"snippet" gorm:"type:text"`
	FromAddress      string      `json:"from_address"`
	ToAddresses      StringArray `json:"to_addresses" gorm:"type:text"`
	CCAddresses      StringArray `json:"cc_addresses" gorm:"type:text"`
	ReceivedAt       time.Time   `json:"received_at"`
	Labels           StringArray `json:"labels" gorm:"type:text"`
	IsMailingList    bool        `json:"is_mailing_list" gorm:"not null;default:false"`
	ClassifiedType   *string     `json:"classified_type,omitempty"`
	ConfidenceScore  int         `json:"confidence_score" gorm:"not null;default:0"`
	Rationale        string      `json:"rationale" gorm:"type:text"`
	ClassifierMethod string      `json:"classifier_method"`
	IsProcessed      bool        `json:"is_processed" gorm:"not null;default:false"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

func (ThreadRecord) TableName() string { return "thread_records" }
