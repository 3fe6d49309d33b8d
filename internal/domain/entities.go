// Package domain holds the entities, ports and error taxonomy of the
// interview evaluator. It has no dependencies on adapters.
package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrInternal        = errors.New("internal error")

	// ErrConfiguration marks missing questions or required fields. Not retryable.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidState marks an operation attempted against the wrong session state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrGateway is the parent of every text-generation failure.
	ErrGateway           = errors.New("gateway error")
	ErrGatewayConnection = fmt.Errorf("%w: connection", ErrGateway)
	ErrGatewayTimeout    = fmt.Errorf("%w: timeout", ErrGateway)
	ErrGatewayMalformed  = fmt.Errorf("%w: malformed response", ErrGateway)

	ErrExtraction = errors.New("extraction error")
	ErrValidation = errors.New("validation error")

	// ErrTurnIncomplete is returned when the candidate message of a turn was
	// stored but no AI reply was recorded.
	ErrTurnIncomplete = errors.New("turn incomplete")
	// ErrTurnInFlight is returned when another turn holds the session lock.
	ErrTurnInFlight = errors.New("turn already in flight")

	ErrContentRejected = errors.New("content rejected")
)

// Context is an alias so adapters and usecases share one context type.
type Context = context.Context
