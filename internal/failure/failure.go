// Package failure classifies everything that can go wrong while serving
// an asset into four kinds, each mapped to a single HTTP status code.
package failure

import (
	"github.com/jmgilman/go/errors"
	"net/http"
)

// Validation reports a malformed or out-of-bounds request parameter.
func Validation(format string, args ...any) error {
	return errors.Newf(errors.CodeInvalidInput, format, args...)
}

// NotFound reports an object that is absent in a store.
func NotFound(format string, args ...any) error {
	return errors.Newf(errors.CodeNotFound, format, args...)
}

// StoreUnavailable reports a transport, authentication or timeout failure
// of a store backend. The core never retries these.
func StoreUnavailable(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return errors.Wrapf(err, errors.CodeUnavailable, format, args...)
}

// TransformFailed reports that the transform engine rejected its input
// or did not finish in time.
func TransformFailed(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return errors.Wrapf(err, errors.CodeExecutionFailed, format, args...)
}

func IsValidation(err error) bool {
	return errors.GetCode(err) == errors.CodeInvalidInput
}

func IsNotFound(err error) bool {
	return errors.GetCode(err) == errors.CodeNotFound
}

func IsStoreUnavailable(err error) bool {
	return errors.GetCode(err) == errors.CodeUnavailable
}

func IsTransformFailed(err error) bool {
	return errors.GetCode(err) == errors.CodeExecutionFailed
}

// HTTPStatus maps an error to the status code returned to the client.
// Anything unclassified is a server error.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a minimal body that is safe to show to the client.
// Validation messages are echoed since they only describe the request itself,
// everything else is reduced to a fixed string.
func PublicMessage(err error) string {
	var platformErr errors.PlatformError

	switch {
	case err == nil:
		return ""
	case IsValidation(err) && errors.As(err, &platformErr):
		return platformErr.Message()
	case IsNotFound(err):
		return "Not found"
	default:
		return "Processing failed"
	}
}
