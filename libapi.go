package relayflow

import (
	runtimepkg "github.com/relayflow/relayflow/internal/runtime"
	configpkg "github.com/relayflow/relayflow/internal/runtime/config"
	dispatchpkg "github.com/relayflow/relayflow/internal/runtime/dispatch"
	errspkg "github.com/relayflow/relayflow/internal/runtime/errors"
	idspkg "github.com/relayflow/relayflow/internal/runtime/ids"
	loggingpkg "github.com/relayflow/relayflow/internal/runtime/logging"
	metadatapkg "github.com/relayflow/relayflow/internal/runtime/metadata"
	receiptspkg "github.com/relayflow/relayflow/internal/runtime/receipts"
	registrypkg "github.com/relayflow/relayflow/internal/runtime/registry"
	transportpkg "github.com/relayflow/relayflow/internal/runtime/transport"
	typespkg "github.com/relayflow/relayflow/internal/runtime/types"
	wirepkg "github.com/relayflow/relayflow/internal/runtime/wire"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Transport           = transportpkg.Transport
	TransportFactory    = transportpkg.Factory

	// Identifier types
	ResourceID = typespkg.ResourceID
	Address    = typespkg.Address

	// Routing registry
	Registry       = registrypkg.Registry
	RegistryOption = registrypkg.Option
	RoutingEntry   = registrypkg.RoutingEntry

	// Payload codec
	ExecutionRequest = wirepkg.ExecutionRequest

	// Dispatcher
	Dispatcher       = dispatchpkg.Handler
	GenericHandler   = dispatchpkg.GenericHandler
	DispatcherOption = dispatchpkg.Option
	TargetCaller     = dispatchpkg.TargetCaller
	TargetCallerFunc = dispatchpkg.TargetCallerFunc
	ExecutionResult  = dispatchpkg.ExecutionResult

	// Relay pipeline
	RelayRegistration          = runtimepkg.RelayRegistration
	MessageHandlerRegistration = runtimepkg.MessageHandlerRegistration

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	HandlerInfo  = runtimepkg.HandlerInfo
	HandlerStats = runtimepkg.HandlerStats

	// Receipts
	DepositAck       = receiptspkg.DepositAck
	ExecutionReceipt = receiptspkg.ExecutionReceipt

	// Error types
	ConfigValidationError   = errspkg.ConfigValidationError
	StructuralDecodeError   = errspkg.StructuralDecodeError
	FieldWidthError         = errspkg.FieldWidthError
	BudgetExceededError     = errspkg.BudgetExceededError
	DepositorMismatchError  = errspkg.DepositorMismatchError
	UnauthorizedCallerError = errspkg.UnauthorizedCallerError
	UnknownResourceError    = errspkg.UnknownResourceError
	MetadataError           = errspkg.MetadataError

	// Error classification
	ErrorClassifier = runtimepkg.ErrorClassifier
	ErrorCategory   = runtimepkg.ErrorCategory
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig

	// Identifier constructors
	ResourceIDFromBytes = typespkg.ResourceIDFromBytes
	ResourceIDFromHex   = typespkg.ResourceIDFromHex
	AddressFromBytes    = typespkg.AddressFromBytes
	AddressFromHex      = typespkg.AddressFromHex

	// Routing registry
	NewRegistry         = registrypkg.New
	WithRegistryLogger  = registrypkg.WithLogger
	WithRegistryMetrics = registrypkg.WithMetrics

	// Payload codec
	DecodePayload = wirepkg.Decode
	EncodePayload = wirepkg.Encode
	Calldata      = wirepkg.Calldata

	// Dispatcher
	NewGenericHandler   = dispatchpkg.NewGenericHandler
	WithBudgetCeiling   = dispatchpkg.WithBudgetCeiling
	WithDispatchLogger  = dispatchpkg.WithLogger
	WithDispatchMetrics = dispatchpkg.WithMetrics

	RegisterMessageHandler = runtimepkg.RegisterMessageHandler

	DefaultMiddlewares    = runtimepkg.DefaultMiddlewares
	ProposalIDMiddleware  = runtimepkg.ProposalIDMiddleware
	LogMessagesMiddleware = runtimepkg.LogMessagesMiddleware
	TracerMiddleware      = runtimepkg.TracerMiddleware
	MetricsMiddleware     = runtimepkg.MetricsMiddleware
	RetryMiddleware       = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware   = runtimepkg.RecovererMiddleware

	// Submission helpers
	NewDepositMessage  = runtimepkg.NewDepositMessage
	NewProposalMessage = runtimepkg.NewProposalMessage

	// Receipt codec (sonic-backed JSON)
	Marshal       = receiptspkg.Marshal
	MarshalIndent = receiptspkg.MarshalIndent
	Unmarshal     = receiptspkg.Unmarshal
	Encode        = receiptspkg.Encode
	Decode        = receiptspkg.Decode

	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrConsumeTopicRequired = errspkg.ErrConsumeTopicRequired
	ErrHandlerNameRequired  = errspkg.ErrHandlerNameRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	ErrRegistryRequired     = errspkg.ErrRegistryRequired
	ErrTargetCallerRequired = errspkg.ErrTargetCallerRequired
	ErrPayloadRequired      = errspkg.ErrPayloadRequired
	ErrDispatcherRequired   = errspkg.ErrDispatcherRequired

	// IsValidationError reports whether an error is terminal for the payload
	// that produced it.
	IsValidationError = errspkg.IsValidation

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger

	NewMetadata = metadatapkg.New

	NewProposalID = idspkg.NewProposalID
)

// Wire format constants.
const (
	MinMessageLength = wirepkg.MinMessageLength
	SelectorLength   = wirepkg.SelectorLength

	ResourceIDLength = typespkg.ResourceIDLength
	AddressLength    = typespkg.AddressLength

	DefaultBudgetCeiling = dispatchpkg.DefaultBudgetCeiling
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyProposalID     = metadatapkg.KeyProposalID
	MetadataKeyResourceID     = metadatapkg.KeyResourceID
	MetadataKeyCaller         = metadatapkg.KeyCaller
	MetadataKeyDepositor      = metadatapkg.KeyDepositor
	MetadataKeyDeclaredBudget = metadatapkg.KeyDeclaredBudget
)

// Default topic names.
const (
	DefaultDepositTopic  = configpkg.DefaultDepositTopic
	DefaultProposalTopic = configpkg.DefaultProposalTopic
	DefaultReceiptTopic  = configpkg.DefaultReceiptTopic
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone       = runtimepkg.ErrorCategoryNone
	ErrorCategoryValidation = runtimepkg.ErrorCategoryValidation
	ErrorCategoryTransport  = runtimepkg.ErrorCategoryTransport
	ErrorCategoryDownstream = runtimepkg.ErrorCategoryDownstream
	ErrorCategoryOther      = runtimepkg.ErrorCategoryOther
)
