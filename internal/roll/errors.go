package roll

import (
	"errors"
	"fmt"

	"github.com/webrtc/autoroller/internal/commands"
)

// PreconditionError means the workspace is not ready and nothing was changed
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// CheckoutError means the given or current directory is not a checkout of the downstream project
type CheckoutError struct {
	Path   string
	Reason string
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

// ParseError means tool output or a file did not have the expected shape
type ParseError struct {
	What  string
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from:\n%s", e.What, e.Input)
}

// UnsupportedPlatformError is returned on operating systems other than Linux and macOS
type UnsupportedPlatformError struct {
	OS string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("only Linux and Mac platforms are supported right now (running on %s)", e.OS)
}

// CheckPlatform rejects operating systems the roller does not support
func CheckPlatform(goos string) error {
	switch goos {
	case "linux", "darwin":
		return nil
	}
	return &UnsupportedPlatformError{OS: goos}
}

// ExitCode maps an error returned by the roller to the process exit status
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var checkoutErr *CheckoutError
	if errors.As(err, &checkoutErr) {
		return -2
	}

	var cmdErr *commands.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}

	return -1
}
