// Command dashprobe waits for the stock dashboard to finish its cold start,
// runs the industry data checks against it, and serves a local fake of it.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	fcolor "github.com/fatih/color"

	"github.com/kuitang/stockdash-e2e/internal/errs"
	"github.com/kuitang/stockdash-e2e/internal/obs"
)

func main() {
	exitCode := runSafely(os.Args[1:], runWithArgs, os.Stderr)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func runSafely(args []string, runner func([]string) int, errWriter io.Writer) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			_, _ = fcolor.New(fcolor.FgRed).Fprintf(errWriter, "✗ panic recovered: %v\n%s", r, debug.Stack())
			exitCode = 1
		}
	}()
	return runner(args)
}

func runWithArgs(args []string) int {
	obs.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fcolor.New(fcolor.FgRed).Fprintf(root.ErrOrStderr(), "✗ %v\n", err)
		return errs.ExitCode(err)
	}
	return 0
}

// printf writes to the command's stdout, ignoring write errors as fmt.Printf does.
func printf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
