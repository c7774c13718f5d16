// Package capi holds the cgo-free business logic behind the C ABI in
// cmd/clockbound-c: opening a client, translating its errors into the
// {kind, errno, detail} shape the C struct mirrors, and answering Now().
// It exists mainly so the cgo glue file stays a thin translation layer.
package capi

import (
	"errors"
	"syscall"

	"github.com/aws/clock-bound/internal/client"
	"github.com/aws/clock-bound/internal/clockbound"
)

// Context wraps a client.Client for the lifetime of one FFI handle.
type Context struct {
	client *client.Client
}

// ErrInvalidHandle is returned when a C caller passes a handle whose value
// is not a Context. A handle that was already closed is not reported this
// way: cgo.Handle.Value panics on it.
var ErrInvalidHandle = &clockbound.Error{Kind: clockbound.SegmentNotInitialized, Origin: "capi.handle", Detail: "invalid or closed context handle"}

// Open mirrors client.Open, returning the FFI-facing Context.
func Open(clockboundPath, vmclockPath string) (*Context, error) {
	c, err := client.Open(clockboundPath, vmclockPath)
	if err != nil {
		return nil, err
	}
	return &Context{client: c}, nil
}

// NowResult mirrors the C now_result struct.
type NowResult struct {
	EarliestSec, EarliestNsec int64
	LatestSec, LatestNsec     int64
	Status                    clockbound.ClockStatus
}

// Now calls the wrapped client and flattens the result into NowResult.
func (c *Context) Now() (NowResult, error) {
	earliest, latest, status, err := c.client.Now()
	if err != nil {
		return NowResult{}, err
	}
	return NowResult{
		EarliestSec:  earliest.Unix(),
		EarliestNsec: int64(earliest.Nanosecond()),
		LatestSec:    latest.Unix(),
		LatestNsec:   int64(latest.Nanosecond()),
		Status:       status,
	}, nil
}

// Close releases the wrapped client's segment mappings.
func (c *Context) Close() error {
	return c.client.Close()
}

// ErrorDetail is the Go-side shape of the C error struct's {kind, errno,
// detail} fields.
type ErrorDetail struct {
	Kind   int32
	Errno  int32
	Detail string
}

// DescribeError maps any error returned by this package into the C ABI's
// error shape. Non-clockbound errors (e.g. a bad path) are reported as a
// generic Syscall kind with errno 0.
func DescribeError(err error) ErrorDetail {
	if err == nil {
		return ErrorDetail{}
	}
	var cbErr *clockbound.Error
	if errors.As(err, &cbErr) {
		var errno syscall.Errno
		errors.As(cbErr.Err, &errno)
		return ErrorDetail{Kind: int32(cbErr.Kind), Errno: int32(errno), Detail: cbErr.Error()}
	}
	return ErrorDetail{Kind: int32(clockbound.Syscall), Errno: 0, Detail: err.Error()}
}
