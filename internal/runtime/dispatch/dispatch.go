// Package dispatch implements the generic message dispatcher: it decodes a
// proposal payload, validates it, and forwards the reconstructed call frame
// to the handler contract that owns the resource, under the execution
// budget the payload declared.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	rferrors "github.com/relayflow/relayflow/internal/runtime/errors"
	"github.com/relayflow/relayflow/internal/runtime/logging"
	"github.com/relayflow/relayflow/internal/runtime/receipts"
	"github.com/relayflow/relayflow/internal/runtime/registry"
	"github.com/relayflow/relayflow/internal/runtime/types"
	"github.com/relayflow/relayflow/internal/runtime/wire"
)

// DefaultBudgetCeiling is the exclusive upper bound on the execution budget
// a deposit may declare.
const DefaultBudgetCeiling uint64 = 1_000_000

// TargetCaller performs the budgeted sub-invocation of a handler contract.
// It is the dispatcher's only side-effecting boundary. ok=false with
// err=nil is the forwarded call failing inside its budget; err is reserved
// for the calling machinery itself breaking (connection lost, host down).
type TargetCaller interface {
	Call(ctx context.Context, target types.Address, calldata []byte, budget uint64) (ok bool, ret []byte, err error)
}

// TargetCallerFunc adapts a plain function to the TargetCaller interface.
type TargetCallerFunc func(ctx context.Context, target types.Address, calldata []byte, budget uint64) (bool, []byte, error)

func (f TargetCallerFunc) Call(ctx context.Context, target types.Address, calldata []byte, budget uint64) (bool, []byte, error) {
	return f(ctx, target, calldata, budget)
}

// ExecutionResult carries the forwarded call's outcome verbatim. The caller
// decides how to interpret a failed forwarded call; the dispatcher never
// turns it into an error.
type ExecutionResult struct {
	Success    bool
	ReturnData []byte
}

// Handler is the contract shared by all deposit/execution handlers the
// bridge routes to.
type Handler interface {
	Deposit(ctx context.Context, caller types.Address, resourceID types.ResourceID, depositor types.Address, payload []byte) ([]byte, error)
	ExecuteProposal(ctx context.Context, caller types.Address, resourceID types.ResourceID, payload []byte) (ExecutionResult, error)
	SetResource(resourceID types.ResourceID, addr types.Address, auxiliary []byte) error
}

// GenericHandler relays opaque execution payloads to arbitrary handler
// contracts. It is stateless across calls; each invocation is an
// independent decode, validate, forward, report transaction.
type GenericHandler struct {
	bridge  types.Address
	routes  *registry.Registry
	caller  TargetCaller
	ceiling *big.Int
	log     logging.ServiceLogger

	forwards *prometheus.CounterVec
	now      func() time.Time
}

var _ Handler = (*GenericHandler)(nil)

// Option customises a GenericHandler.
type Option func(*GenericHandler)

// WithBudgetCeiling overrides the deposit pre-validation ceiling.
func WithBudgetCeiling(ceiling uint64) Option {
	return func(h *GenericHandler) {
		if ceiling > 0 {
			h.ceiling = new(big.Int).SetUint64(ceiling)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log logging.ServiceLogger) Option {
	return func(h *GenericHandler) {
		if log != nil {
			h.log = log
		}
	}
}

// WithMetrics registers a counter of forwarded calls, labelled by outcome,
// with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(h *GenericHandler) {
		if reg == nil {
			return
		}
		h.forwards = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "relayflow",
			Name:      "forwarded_calls_total",
			Help:      "Forwarded proposal calls by outcome.",
		}, []string{"outcome"})
		reg.MustRegister(h.forwards)
	}
}

// NewGenericHandler builds a dispatcher gated to the given bridge caller.
func NewGenericHandler(bridge types.Address, routes *registry.Registry, caller TargetCaller, opts ...Option) (*GenericHandler, error) {
	if routes == nil {
		return nil, rferrors.ErrRegistryRequired
	}
	if caller == nil {
		return nil, rferrors.ErrTargetCallerRequired
	}

	h := &GenericHandler{
		bridge:  bridge,
		routes:  routes,
		caller:  caller,
		ceiling: new(big.Int).SetUint64(DefaultBudgetCeiling),
		log:     logging.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// BridgeCaller returns the privileged caller identity this handler accepts.
func (h *GenericHandler) BridgeCaller() types.Address { return h.bridge }

func (h *GenericHandler) gate(caller types.Address) error {
	if caller != h.bridge {
		return &rferrors.UnauthorizedCallerError{Caller: caller}
	}
	return nil
}

// Deposit pre-validates a deposit submission without forwarding anything:
// the payload must decode, its declared budget must be strictly below the
// ceiling, and its embedded depositor field must equal the depositor the
// caller supplied. On success it returns an encoded acknowledgement.
func (h *GenericHandler) Deposit(ctx context.Context, caller types.Address, resourceID types.ResourceID, depositor types.Address, payload []byte) ([]byte, error) {
	_ = ctx

	if err := h.gate(caller); err != nil {
		return nil, err
	}

	req, err := wire.Decode(payload)
	if err != nil {
		return nil, err
	}

	if req.MaxBudget.Cmp(h.ceiling) >= 0 {
		return nil, &rferrors.BudgetExceededError{Budget: req.MaxBudget, Ceiling: h.ceiling.Uint64()}
	}
	if !bytes.Equal(req.Depositor, depositor[:]) {
		return nil, &rferrors.DepositorMismatchError{Declared: req.Depositor, Supplied: depositor}
	}

	h.log.Debug("deposit admitted", logging.LogFields{
		"resource_id": resourceID.Hex(),
		"depositor":   depositor.Hex(),
		"max_budget":  req.MaxBudget.String(),
	})

	return receipts.Marshal(receipts.DepositAck{
		ResourceID:        resourceID.Hex(),
		Depositor:         depositor.Hex(),
		MaxBudget:         req.MaxBudget.String(),
		ExecutionDataSize: len(req.ExecutionData),
		AdmittedAt:        h.now().UTC(),
	})
}

// ExecuteProposal decodes the payload under the strict field-width rules,
// resolves the handler contract owning resourceID, and invokes it with the
// reconstructed call frame and the declared budget as an upper bound. The
// forwarded call's success flag and return bytes are passed through
// verbatim; only structural problems and broken calling machinery are
// errors.
func (h *GenericHandler) ExecuteProposal(ctx context.Context, caller types.Address, resourceID types.ResourceID, payload []byte) (ExecutionResult, error) {
	if err := h.gate(caller); err != nil {
		return ExecutionResult{}, err
	}

	req, err := wire.Decode(payload)
	if err != nil {
		return ExecutionResult{}, err
	}
	if err := req.ValidateWidths(); err != nil {
		return ExecutionResult{}, err
	}

	target := h.routes.ResolveAddress(resourceID)
	if target.IsZero() {
		return ExecutionResult{}, &rferrors.UnknownResourceError{ResourceID: resourceID}
	}

	calldata, err := wire.Calldata(req)
	if err != nil {
		return ExecutionResult{}, err
	}

	tracer := otel.Tracer("relayflow-dispatcher")
	ctx, span := tracer.Start(ctx, "ExecuteProposal")
	defer span.End()
	span.SetAttributes(
		attribute.String("relay.resource_id", resourceID.Hex()),
		attribute.String("relay.target", target.Hex()),
		attribute.String("relay.budget", req.MaxBudget.String()),
	)

	ok, ret, err := h.caller.Call(ctx, target, calldata, clampBudget(req.MaxBudget))
	if err != nil {
		h.countForward("error")
		return ExecutionResult{}, fmt.Errorf("relayflow: target call machinery failed: %w", err)
	}

	if ok {
		h.countForward("success")
	} else {
		h.countForward("failure")
		h.log.Info("forwarded call failed", logging.LogFields{
			"resource_id": resourceID.Hex(),
			"target":      target.Hex(),
		})
	}

	return ExecutionResult{Success: ok, ReturnData: ret}, nil
}

// SetResource satisfies the shared handler contract. Routing for generic
// messages is decided by the resource registry outside this component, so
// this hook intentionally performs no state change.
func (h *GenericHandler) SetResource(resourceID types.ResourceID, addr types.Address, auxiliary []byte) error {
	_, _, _ = resourceID, addr, auxiliary
	return nil
}

func (h *GenericHandler) countForward(outcome string) {
	if h.forwards != nil {
		h.forwards.WithLabelValues(outcome).Inc()
	}
}

// clampBudget narrows the 32-byte budget word to the uint64 the caller
// boundary accepts. Values beyond uint64 saturate; the deposit ceiling
// makes them unreachable on pre-validated paths.
func clampBudget(budget *big.Int) uint64 {
	if budget == nil {
		return 0
	}
	if !budget.IsUint64() {
		return math.MaxUint64
	}
	return budget.Uint64()
}
