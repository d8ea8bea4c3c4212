package cli

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/n8n-cli/n8nctl/engine/core"
	"github.com/n8n-cli/n8nctl/engine/lifecycle"
)

// sysexits-aligned exit codes.
const (
	ExitOK          = 0
	ExitGeneral     = 1
	ExitUsage       = 64
	ExitDataErr     = 65
	ExitNoInput     = 66
	ExitUnavailable = 69
	ExitSoftware    = 70
	ExitNoPerm      = 73
	ExitIOErr       = 74
	ExitTempFail    = 75
	ExitProtocol    = 76
	ExitConfig      = 78
)

// errUsage marks command-line usage mistakes so Execute can exit 64.
var errUsage = errors.New("usage error")

// ExitCode maps an error to its process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if isUsageError(err) {
		return ExitUsage
	}
	if errors.Is(err, context.Canceled) {
		return lifecycle.ExitInterrupt
	}
	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return ExitIOErr
		}
		return ExitGeneral
	}
	switch coreErr.Kind {
	case core.KindValidationFailed, core.KindParseFailed:
		return ExitDataErr
	case core.KindNotFound:
		return ExitNoInput
	case core.KindServerError, core.KindTransportError, core.KindTimeout:
		return ExitUnavailable
	case core.KindInternal:
		return ExitSoftware
	case core.KindAuthFailed, core.KindPermissionDenied:
		return ExitNoPerm
	case core.KindRateLimited:
		return ExitTempFail
	case core.KindConflict:
		return ExitProtocol
	case core.KindConfigInvalid:
		return ExitConfig
	case core.KindCancelled:
		return lifecycle.ExitInterrupt
	default:
		return ExitGeneral
	}
}

// isUsageError catches cobra's untagged parse failures plus anything a
// command wrapped with errUsage.
func isUsageError(err error) bool {
	if errors.Is(err, errUsage) {
		return true
	}
	msg := err.Error()
	for _, prefix := range []string{
		"unknown command", "unknown flag", "unknown shorthand flag",
		"accepts ", "requires at least", "invalid argument",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
