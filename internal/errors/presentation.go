package errors

import (
	"fmt"

	"github.com/rs/zerolog"
)

// UserMessage returns a user-facing message for err
func UserMessage(err error) string {
	if e, ok := err.(*Error); ok {
		return formatUserError(e)
	}
	return err.Error()
}

func formatUserError(e *Error) string {
	switch e.Type {
	case ErrorTypeValidation:
		if field, ok := e.Context["field"]; ok {
			return fmt.Sprintf("Invalid %s: %s", field, e.Message)
		}
	case ErrorTypeNetwork:
		if url, ok := e.Context["url"]; ok {
			return fmt.Sprintf("Network error accessing %s: %s", url, e.Error())
		}
		return e.Error()
	case ErrorTypeConfig:
		if configType, ok := e.Context["config_type"]; ok {
			return fmt.Sprintf("Configuration error (%s): %s", configType, e.Message)
		}
	case ErrorTypeTransfer:
		if action, ok := e.Context["action"]; ok && e.Cause != nil {
			return fmt.Sprintf("Action %v failed: %s", action, e.Cause.Error())
		}
		return e.Error()
	case ErrorTypeEncoding:
		return e.Error()
	}
	return e.Message
}

// PresentError writes err to logger at error level with its context as fields
func PresentError(logger zerolog.Logger, err error) {
	if err == nil {
		return
	}

	if e, ok := err.(*Error); ok {
		event := logger.Error().Str("error_type", string(e.Type))
		for key, value := range e.Context {
			event = event.Interface(key, value)
		}
		if e.Cause != nil {
			event = event.AnErr("cause", e.Cause)
		}
		event.Msg(UserMessage(e))
		return
	}

	logger.Error().Err(err).Msg("")
}

// DebugInfo returns detailed error information for debugging
func DebugInfo(err error) map[string]interface{} {
	info := map[string]interface{}{
		"error":   err.Error(),
		"type":    "unknown",
		"context": map[string]interface{}{},
	}

	if e, ok := err.(*Error); ok {
		info["type"] = string(e.Type)
		info["message"] = e.Message
		info["context"] = e.Context

		if e.Cause != nil {
			info["cause"] = e.Cause.Error()
		}
	}

	return info
}
