// Package receipts defines the JSON documents the relay returns and
// publishes: deposit acknowledgements from the pre-validation path and
// execution receipts from the forwarding path.
package receipts

import (
	"io"
	"time"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

// DepositAck acknowledges a deposit submission that passed pre-validation.
// No call was performed; the ack only binds what was checked.
type DepositAck struct {
	ResourceID        string    `json:"resource_id"`
	Depositor         string    `json:"depositor"`
	MaxBudget         string    `json:"max_budget"`
	ExecutionDataSize int       `json:"execution_data_size"`
	AdmittedAt        time.Time `json:"admitted_at"`
}

// ExecutionReceipt reports the outcome of one forwarded proposal. Success
// false is a completed relay whose forwarded call failed, not a relay
// error.
type ExecutionReceipt struct {
	ProposalID  string    `json:"proposal_id,omitempty"`
	ResourceID  string    `json:"resource_id"`
	Target      string    `json:"target"`
	Success     bool      `json:"success"`
	ReturnData  []byte    `json:"return_data,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}
