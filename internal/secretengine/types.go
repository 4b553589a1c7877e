// Package secretengine implements the 14 Secrets Manager RPC operations:
// their transactional logic, idempotency handling, and the stage-management
// state machine that governs AWSCURRENT/AWSPREVIOUS rotation.
package secretengine

import (
	"encoding/json"
	"time"
)

// Timestamp marshals as seconds-since-epoch with fractional sub-second
// precision, the wire shape real SDK clients expect from this operation
// family, rather than an RFC3339 string.
type Timestamp time.Time

// NewTimestamp wraps t as a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Time unwraps the Timestamp back to a time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	secs := float64(time.Time(t).UnixNano()) / 1e9
	return json.Marshal(secs)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return err
	}
	whole := int64(secs)
	frac := secs - float64(whole)
	*t = Timestamp(time.Unix(whole, int64(frac*1e9)).UTC())
	return nil
}

func tsPtr(t time.Time) *Timestamp {
	ts := NewTimestamp(t)
	return &ts
}

func tsPtrOpt(t *time.Time) *Timestamp {
	if t == nil {
		return nil
	}
	return tsPtr(*t)
}

// TagEntry is a single Key/Value tag pair, the wire shape CreateSecret and
// TagResource both accept and DescribeSecret/ListSecrets both emit.
type TagEntry struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// Filter is one ListSecrets/BatchGetSecretValue filter clause.
type Filter struct {
	Key    string   `json:"Key"`
	Values []string `json:"Values"`
	Negate *bool    `json:"Negate,omitempty"`
}

// APIErrorEntry reports a per-id lookup failure inside a
// BatchGetSecretValue response, rather than failing the whole call.
type APIErrorEntry struct {
	SecretId  string `json:"SecretId"`
	ErrorCode string `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// awsParityNulls are the response fields real SDK clients expect from this
// operation family that this service never populates (KMS key hierarchies,
// rotation Lambdas, cross-region replication are all out of scope per
// spec.md §1). Embedding this struct keeps every response structurally
// drop-in compatible without repeating the field list per DTO.
type awsParityNulls struct {
	KmsKeyId          *string   `json:"KmsKeyId"`
	RotationEnabled   bool      `json:"RotationEnabled"`
	RotationLambdaARN *string   `json:"RotationLambdaARN"`
	RotationRules     *struct{} `json:"RotationRules"`
	ReplicationStatus []struct{} `json:"ReplicationStatus"`
	PrimaryRegion     *string   `json:"PrimaryRegion"`
	OwningService     *string   `json:"OwningService"`
	NextRotationDate  *Timestamp `json:"NextRotationDate"`
	LastRotatedDate   *Timestamp `json:"LastRotatedDate"`
}
