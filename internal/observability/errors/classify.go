// Package errors turns arbitrary errors into bounded metric label values.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/target/mmk-sessiongate/internal/errors"
)

// Well-known classes. Anything else is labelled by its innermost concrete type.
const (
	ClassTimeout     = "timeout"
	ClassCanceled    = "canceled"
	ClassCircuitOpen = "circuit_open"
)

// Classify returns a low-cardinality label for err, or "" for nil.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, gobreaker.ErrOpenState), goerrors.Is(err, gobreaker.ErrTooManyRequests):
		return ClassCircuitOpen
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// typeName renders *net.OpError as "net_operror".
func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
