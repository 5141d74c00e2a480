package apperrors

import "errors"

var (
	// ErrNoRecord means no structured record could be recovered from model output.
	ErrNoRecord = errors.New("no record in model output")
	// ErrSystemRoleUnsupported means a chat template cannot render a system turn.
	ErrSystemRoleUnsupported = errors.New("system role not supported by chat template")
	// ErrModelUnavailable means a model backend could not be acquired.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrDuplicateTrial means two trials share a (model, query) key.
	ErrDuplicateTrial = errors.New("duplicate trial for model and query")
	// ErrDuplicateModel means two roster entries would report under the same model key.
	ErrDuplicateModel  = errors.New("duplicate model in roster")
	ErrUnknownBackend  = errors.New("unknown model backend")
	ErrUnknownTemplate = errors.New("unknown chat template")
)
