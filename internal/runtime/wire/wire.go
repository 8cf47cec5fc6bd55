// Package wire implements the binary codec for generic execution requests.
//
// The layout is a sequence of length-prefixed fields, big-endian, unsigned,
// with no padding or alignment:
//
//	[0:32]   max budget (32-byte unsigned integer)
//	[32:34]  selector length (2 bytes)
//	         selector (declared length)
//	[+1]     target address length (1 byte)
//	         target address (declared length)
//	[+1]     depositor address length (1 byte)
//	         depositor address (declared length)
//	rest     execution data (opaque to this layer)
//
// Decoding is pure: it allocates a fresh ExecutionRequest from the raw
// bytes and never retains the input slice.
package wire

import (
	"encoding/binary"
	"math/big"

	rferrors "github.com/relayflow/relayflow/internal/runtime/errors"
	"github.com/relayflow/relayflow/internal/runtime/types"
)

const (
	budgetFieldLength    = 32
	selectorPrefixLength = 2
	addressPrefixLength  = 1

	// SelectorLength is the fixed width of the 4-byte call selector tag
	// enforced on the execution path.
	SelectorLength = 4

	// MinMessageLength is the structurally smallest valid message: the
	// budget word, the three length prefixes, two 20-byte addresses, and
	// empty execution data.
	MinMessageLength = budgetFieldLength +
		selectorPrefixLength +
		addressPrefixLength + types.AddressLength +
		addressPrefixLength + types.AddressLength
)

// ExecutionRequest is the decoded form of a generic execution payload. It
// is constructed fresh per call and never persisted. Selector, target, and
// depositor keep the widths their prefixes declared; the strict execution
// path validates them with ValidateWidths before use.
type ExecutionRequest struct {
	MaxBudget     *big.Int
	Selector      []byte
	TargetAddress []byte
	Depositor     []byte
	ExecutionData []byte
}

// cursor walks the payload with explicit bounds checks before every read.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) take(n int, field string) ([]byte, error) {
	if have := len(c.buf) - c.off; have < n {
		return nil, &rferrors.StructuralDecodeError{
			Field:  field,
			Offset: c.off,
			Need:   n,
			Have:   have,
		}
	}
	out := make([]byte, n)
	copy(out, c.buf[c.off:c.off+n])
	c.off += n
	return out, nil
}

func (c *cursor) rest() []byte {
	out := make([]byte, len(c.buf)-c.off)
	copy(out, c.buf[c.off:])
	c.off = len(c.buf)
	return out
}

// Decode parses raw into an ExecutionRequest. Payloads shorter than
// MinMessageLength, or whose length prefixes imply a read past the end of
// the buffer, yield a StructuralDecodeError.
func Decode(raw []byte) (*ExecutionRequest, error) {
	if len(raw) < MinMessageLength {
		return nil, &rferrors.StructuralDecodeError{
			Field:  "message",
			Offset: 0,
			Need:   MinMessageLength,
			Have:   len(raw),
		}
	}

	c := &cursor{buf: raw}

	budget, err := c.take(budgetFieldLength, "max budget")
	if err != nil {
		return nil, err
	}

	selectorPrefix, err := c.take(selectorPrefixLength, "selector length")
	if err != nil {
		return nil, err
	}
	selector, err := c.take(int(binary.BigEndian.Uint16(selectorPrefix)), "selector")
	if err != nil {
		return nil, err
	}

	targetPrefix, err := c.take(addressPrefixLength, "target address length")
	if err != nil {
		return nil, err
	}
	target, err := c.take(int(targetPrefix[0]), "target address")
	if err != nil {
		return nil, err
	}

	depositorPrefix, err := c.take(addressPrefixLength, "depositor address length")
	if err != nil {
		return nil, err
	}
	depositor, err := c.take(int(depositorPrefix[0]), "depositor address")
	if err != nil {
		return nil, err
	}

	return &ExecutionRequest{
		MaxBudget:     new(big.Int).SetBytes(budget),
		Selector:      selector,
		TargetAddress: target,
		Depositor:     depositor,
		ExecutionData: c.rest(),
	}, nil
}

// Encode serializes req back into the wire layout. It is the exact inverse
// of Decode for any request whose fields fit their prefixes (selector up to
// 65535 bytes, addresses up to 255).
func Encode(req *ExecutionRequest) []byte {
	size := budgetFieldLength +
		selectorPrefixLength + len(req.Selector) +
		addressPrefixLength + len(req.TargetAddress) +
		addressPrefixLength + len(req.Depositor) +
		len(req.ExecutionData)

	out := make([]byte, 0, size)

	budget := make([]byte, budgetFieldLength)
	if req.MaxBudget != nil {
		req.MaxBudget.FillBytes(budget)
	}
	out = append(out, budget...)

	var selectorPrefix [selectorPrefixLength]byte
	binary.BigEndian.PutUint16(selectorPrefix[:], uint16(len(req.Selector)))
	out = append(out, selectorPrefix[:]...)
	out = append(out, req.Selector...)

	out = append(out, byte(len(req.TargetAddress)))
	out = append(out, req.TargetAddress...)

	out = append(out, byte(len(req.Depositor)))
	out = append(out, req.Depositor...)

	out = append(out, req.ExecutionData...)
	return out
}

// ValidateWidths enforces the fixed field widths required before a request
// may be forwarded: a 4-byte selector and 20-byte target and depositor
// addresses. Any deviation is a FieldWidthError, not a soft warning.
func (r *ExecutionRequest) ValidateWidths() error {
	if len(r.Selector) != SelectorLength {
		return &rferrors.FieldWidthError{Field: "selector", Want: SelectorLength, Got: len(r.Selector)}
	}
	if len(r.TargetAddress) != types.AddressLength {
		return &rferrors.FieldWidthError{Field: "target address", Want: types.AddressLength, Got: len(r.TargetAddress)}
	}
	if len(r.Depositor) != types.AddressLength {
		return &rferrors.FieldWidthError{Field: "depositor address", Want: types.AddressLength, Got: len(r.Depositor)}
	}
	return nil
}

// Target returns the target address as a fixed-width Address. ValidateWidths
// must have passed.
func (r *ExecutionRequest) Target() (types.Address, error) {
	return types.AddressFromBytes(r.TargetAddress)
}

// DepositorAddress returns the depositor field as a fixed-width Address.
// ValidateWidths must have passed.
func (r *ExecutionRequest) DepositorAddress() (types.Address, error) {
	return types.AddressFromBytes(r.Depositor)
}

// Calldata builds the forwarded call frame: the 4-byte selector, the
// depositor encoded as a single 32-byte left-padded word, then the raw
// execution data. The request must satisfy ValidateWidths first.
func Calldata(req *ExecutionRequest) ([]byte, error) {
	if err := req.ValidateWidths(); err != nil {
		return nil, err
	}
	depositor, err := req.DepositorAddress()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, SelectorLength+types.PaddedAddressLength+len(req.ExecutionData))
	out = append(out, req.Selector...)
	out = append(out, depositor.Padded()...)
	out = append(out, req.ExecutionData...)
	return out, nil
}
