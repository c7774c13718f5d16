// Command clockbound-c builds the C ABI for this module: a small cgo shim
// (built with `go build -buildmode=c-archive` or `c-shared`) so C and C++
// callers can open a clock-bound context and call Now() without linking Go
// directly. Business logic lives in package capi; this file only marshals
// across the cgo boundary.
package main

/*
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	int32_t kind;
	int32_t sys_errno;
	char detail[256];
} clockbound_error;

typedef struct {
	int64_t earliest_sec;
	int64_t earliest_nsec;
	int64_t latest_sec;
	int64_t latest_nsec;
	int32_t status;
} clockbound_now_result;

static void clockbound_error_clear(clockbound_error *e) {
	memset(e, 0, sizeof(*e));
}
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"

	"github.com/aws/clock-bound/capi"
)

func fillError(out *C.clockbound_error, err error) {
	if out == nil {
		return
	}
	C.clockbound_error_clear(out)
	if err == nil {
		return
	}
	detail := capi.DescribeError(err)
	out.kind = C.int32_t(detail.Kind)
	out.sys_errno = C.int32_t(detail.Errno)
	cDetail := C.CString(detail.Detail)
	defer C.free(unsafe.Pointer(cDetail))
	C.strncpy(&out.detail[0], cDetail, C.size_t(len(out.detail)-1))
}

// clockbound_open opens the CEB segment (and, when paired, the VMClock
// segment) at the given paths and returns an opaque handle. On failure it
// returns 0 and fills err_out, if non-NULL, with the failure detail.
//
//export clockbound_open
func clockbound_open(clockboundPath, vmclockPath *C.char, errOut *C.clockbound_error) C.uintptr_t {
	ctx, err := capi.Open(C.GoString(clockboundPath), C.GoString(vmclockPath))
	if err != nil {
		fillError(errOut, err)
		return 0
	}
	fillError(errOut, nil)
	return C.uintptr_t(cgo.NewHandle(ctx))
}

// clockbound_now answers a Now() query against the handle returned by
// clockbound_open, writing the result into out. Returns 0 on success, -1 on
// failure (with err_out filled, if non-NULL).
//
//export clockbound_now
func clockbound_now(handle C.uintptr_t, out *C.clockbound_now_result, errOut *C.clockbound_error) C.int {
	h := cgo.Handle(handle)
	ctx, ok := h.Value().(*capi.Context)
	if !ok {
		fillError(errOut, capi.ErrInvalidHandle)
		return -1
	}

	result, err := ctx.Now()
	if err != nil {
		fillError(errOut, err)
		return -1
	}

	out.earliest_sec = C.int64_t(result.EarliestSec)
	out.earliest_nsec = C.int64_t(result.EarliestNsec)
	out.latest_sec = C.int64_t(result.LatestSec)
	out.latest_nsec = C.int64_t(result.LatestNsec)
	out.status = C.int32_t(result.Status)
	fillError(errOut, nil)
	return 0
}

// clockbound_close releases the context behind handle. The handle must not
// be used again after this call.
//
//export clockbound_close
func clockbound_close(handle C.uintptr_t) C.int {
	h := cgo.Handle(handle)
	ctx, ok := h.Value().(*capi.Context)
	if !ok {
		return -1
	}
	err := ctx.Close()
	h.Delete()
	if err != nil {
		return -1
	}
	return 0
}

func main() {}
