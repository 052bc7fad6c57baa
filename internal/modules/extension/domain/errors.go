package domain

import (
	"errors"
	"fmt"
)

// Kind enumerates extension failure classes. None of them is retried here.
type Kind int

const (
	KindInitialization Kind = iota + 1
	KindClient
	KindContextLimit
	KindTransport
	KindInvalidEnvVar
	KindSetup
	KindTaskJoin
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindInitialization:
		return "initialization"
	case KindClient:
		return "client"
	case KindContextLimit:
		return "context_limit"
	case KindTransport:
		return "transport"
	case KindInvalidEnvVar:
		return "invalid_env_var"
	case KindSetup:
		return "setup"
	case KindTaskJoin:
		return "task_join"
	case KindIO:
		return "io"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type Error struct {
	Kind    Kind
	Config  Config
	Key     string
	Message string
	Err     error
}

var (
	ErrInitialization = &Error{Kind: KindInitialization}
	ErrClient         = &Error{Kind: KindClient}
	ErrContextLimit   = &Error{Kind: KindContextLimit}
	ErrTransport      = &Error{Kind: KindTransport}
	ErrInvalidEnvVar  = &Error{Kind: KindInvalidEnvVar}
	ErrSetup          = &Error{Kind: KindSetup}
	ErrTaskJoin       = &Error{Kind: KindTaskJoin}
	ErrIO             = &Error{Kind: KindIO}
)

func NewInitializationError(cfg Config, cause error) *Error {
	return &Error{Kind: KindInitialization, Config: cfg, Err: cause}
}

func NewClientError(cause error) *Error {
	return &Error{Kind: KindClient, Err: cause}
}

func NewContextLimitError() *Error {
	return &Error{Kind: KindContextLimit}
}

func NewTransportError(cause error) *Error {
	return &Error{Kind: KindTransport, Err: cause}
}

func NewInvalidEnvVarError(key string) *Error {
	return &Error{Kind: KindInvalidEnvVar, Key: key}
}

func NewSetupError(format string, args ...any) *Error {
	return &Error{Kind: KindSetup, Message: fmt.Sprintf(format, args...)}
}

func NewTaskJoinError(cause error) *Error {
	return &Error{Kind: KindTaskJoin, Err: cause}
}

func NewIOError(cause error) *Error {
	return &Error{Kind: KindIO, Err: cause}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInitialization:
		return fmt.Sprintf("Failed to start the MCP server from configuration `%s` `%v`", Render(e.Config), e.Err)
	case KindClient:
		return fmt.Sprintf("Failed a client call to an MCP server: %v", e.Err)
	case KindContextLimit:
		return "User Message exceeded context-limit. History could not be truncated to accommodate."
	case KindTransport:
		return fmt.Sprintf("Transport error: %v", e.Err)
	case KindInvalidEnvVar:
		return fmt.Sprintf("Environment variable `%s` is not allowed to be overridden.", e.Key)
	case KindSetup:
		return fmt.Sprintf("Error during extension setup: %s", e.Message)
	case KindTaskJoin:
		return fmt.Sprintf("Join error occurred during task execution: %v", e.Err)
	case KindIO:
		return fmt.Sprintf("IO error: %v", e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, e.g. errors.Is(err, ErrInvalidEnvVar).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Config == nil && t.Key == "" && t.Message == "" && t.Err == nil
}

func KindOf(err error) (Kind, bool) {
	var extErr *Error
	if errors.As(err, &extErr) {
		return extErr.Kind, true
	}
	return 0, false
}
