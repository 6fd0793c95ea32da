package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// Usage reports malformed arguments.
func Usage(msg string, args ...interface{}) cli.ExitCoder {
	return Exit(ExitUsage, msg, args...)
}

// Fail reports a runtime failure of the named step.
func Fail(step string, err error) cli.ExitCoder {
	return Exit(ExitFailure, "%s failed: %s", step, Red(err))
}
