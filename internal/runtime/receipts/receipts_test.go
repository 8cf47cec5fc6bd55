package receipts

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositAckRoundTrip(t *testing.T) {
	ack := DepositAck{
		ResourceID:        "0x01",
		Depositor:         "0x1122334455667788990011223344556677889900",
		MaxBudget:         "500000",
		ExecutionDataSize: 2,
		AdmittedAt:        time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}

	raw, err := Marshal(ack)
	require.NoError(t, err)

	var got DepositAck
	require.NoError(t, Unmarshal(raw, &got))
	assert.Equal(t, ack, got)
}

func TestExecutionReceiptRoundTrip(t *testing.T) {
	receipt := ExecutionReceipt{
		ProposalID:  "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		ResourceID:  "0x01",
		Target:      "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Success:     false,
		ReturnData:  []byte{0xde, 0xad},
		CompletedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, receipt))

	var got ExecutionReceipt
	require.NoError(t, Decode(&buf, &got))
	assert.Equal(t, receipt, got)
}

func TestExecutionReceiptOmitsEmptyReturnData(t *testing.T) {
	raw, err := Marshal(ExecutionReceipt{ResourceID: "0x01", Success: true})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "return_data")
	assert.NotContains(t, string(raw), "proposal_id")
}
