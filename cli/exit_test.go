package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/n8n-cli/n8nctl/engine/core"
)

func TestExitCode(t *testing.T) {
	t.Run("Should map nil to success", func(t *testing.T) {
		assert.Equal(t, ExitOK, ExitCode(nil))
	})

	t.Run("Should map every error kind to its sysexits code", func(t *testing.T) {
		cases := map[core.Kind]int{
			core.KindValidationFailed: ExitDataErr,
			core.KindParseFailed:      ExitDataErr,
			core.KindNotFound:         ExitNoInput,
			core.KindServerError:      ExitUnavailable,
			core.KindTransportError:   ExitUnavailable,
			core.KindTimeout:          ExitUnavailable,
			core.KindInternal:         ExitSoftware,
			core.KindAuthFailed:       ExitNoPerm,
			core.KindPermissionDenied: ExitNoPerm,
			core.KindRateLimited:      ExitTempFail,
			core.KindConflict:         ExitProtocol,
			core.KindConfigInvalid:    ExitConfig,
		}
		for kind, want := range cases {
			err := core.NewKindError(kind, errors.New("boom"), "CODE", "message", nil)
			assert.Equal(t, want, ExitCode(err), "kind %s", kind)
		}
	})

	t.Run("Should map cancellation to 130", func(t *testing.T) {
		assert.Equal(t, 130, ExitCode(context.Canceled))
		err := core.NewKindError(core.KindCancelled, context.Canceled, "CANCELLED", "stopped", nil)
		assert.Equal(t, 130, ExitCode(err))
	})

	t.Run("Should map plain errors to the general code", func(t *testing.T) {
		assert.Equal(t, ExitGeneral, ExitCode(errors.New("something odd")))
	})

	t.Run("Should map filesystem errors to the I/O code", func(t *testing.T) {
		pathErr := &fs.PathError{Op: "write", Path: "out.json", Err: errors.New("disk full")}
		assert.Equal(t, ExitIOErr, ExitCode(fmt.Errorf("write out.json: %w", pathErr)))
	})

	t.Run("Should map usage mistakes to 64", func(t *testing.T) {
		assert.Equal(t, ExitUsage, ExitCode(fmt.Errorf("%w: bad flag", errUsage)))
		assert.Equal(t, ExitUsage, ExitCode(errors.New(`unknown command "frobnicate" for "n8nctl"`)))
		assert.Equal(t, ExitUsage, ExitCode(errors.New("accepts 1 arg(s), received 0")))
	})
}

func TestRootCmd(t *testing.T) {
	t.Run("Should register every top-level command", func(t *testing.T) {
		root := RootCmd()
		names := map[string]bool{}
		for _, c := range root.Commands() {
			names[c.Name()] = true
		}
		for _, want := range []string{"workflow", "nodes", "executions", "webhook", "health"} {
			assert.True(t, names[want], "missing command %s", want)
		}
	})

	t.Run("Should expose the shared persistent flags", func(t *testing.T) {
		root := RootCmd()
		for _, flag := range []string{"config", "output", "debug", "host", "insecure", "strict"} {
			assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag %s", flag)
		}
	})
}
