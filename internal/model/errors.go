package model

import "fmt"

// ValidationError reports a malformed or out-of-range input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GatewayKind classifies an external call failure.
type GatewayKind string

const (
	GatewayInvalidParams GatewayKind = "INVALID_PARAMS"
	GatewayAuth          GatewayKind = "AUTH"
	GatewayRateLimited   GatewayKind = "RATE_LIMITED"
	GatewayNoRoute       GatewayKind = "ROUTE_NOT_FOUND"
	GatewayServer        GatewayKind = "SERVER_ERROR"
	GatewayTimeout       GatewayKind = "TIMEOUT"
	GatewayNetwork       GatewayKind = "NETWORK"
)

// GatewayError reports a failed call to an external collaborator.
type GatewayError struct {
	Gateway string
	Kind    GatewayKind
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s gateway %s: %s", e.Gateway, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s gateway %s: %v", e.Gateway, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// RiskRejection reports that the pipeline concluded the swap must not run.
// It names the dominant risk factor and its mitigation so the caller can
// tell the user why, not just that it failed.
type RiskRejection struct {
	Factor     string
	Mitigation string
	Score      float64
}

func (e *RiskRejection) Error() string {
	return fmt.Sprintf("swap rejected by risk assessment (score %.2f): %s; %s", e.Score, e.Factor, e.Mitigation)
}

// DeferredError reports a WAIT strategy: the swap should be retried later
// under better conditions, and nothing was submitted.
type DeferredError struct {
	Reason string
}

func (e *DeferredError) Error() string {
	return fmt.Sprintf("execution deferred: %s", e.Reason)
}

// RetryExhausted reports that every bundle submission attempt failed and
// no fallback path was available.
type RetryExhausted struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhausted) Error() string {
	return fmt.Sprintf("bundle submission failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhausted) Unwrap() error { return e.LastErr }

// TimeoutExpired reports that a deadline or wait budget ran out.
type TimeoutExpired struct {
	What string
}

func (e *TimeoutExpired) Error() string {
	return fmt.Sprintf("%s deadline exceeded", e.What)
}
