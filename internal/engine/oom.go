package engine

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"syscall"
)

// ErrOutOfMemory marks failures caused by memory exhaustion. Managers tear
// their writer down when they see it.
var ErrOutOfMemory = errors.New("out of memory")

// IsOutOfMemory reports whether err was caused by memory exhaustion.
func IsOutOfMemory(err error) bool {
	return errors.Is(err, ErrOutOfMemory) || errors.Is(err, syscall.ENOMEM)
}

// guard runs fn and converts panics into errors. Allocation panics such as
// oversized makeslice become ErrOutOfMemory.
func guard(op string, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if re, ok := r.(runtime.Error); ok && isAllocationPanic(re.Error()) {
			err = fmt.Errorf("%s: %w: %v", op, ErrOutOfMemory, re)
			return
		}
		err = fmt.Errorf("%s: engine panic: %v", op, r)
	}()
	return fn()
}

func isAllocationPanic(msg string) bool {
	return strings.Contains(msg, "out of memory") ||
		strings.Contains(msg, "makeslice") ||
		strings.Contains(msg, "makemap") ||
		strings.Contains(msg, "growslice")
}
