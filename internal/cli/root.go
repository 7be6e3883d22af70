package cli

import (
	"context"
	"io"
)

// Execute runs the graphwriter CLI with args, writing documents to stdout and
// logs and status lines to stderr.
//
// Logging:
//   - Default: info level
//   - With --verbose (-v): debug level
//
// The logger is attached to the command context and accessible to all
// commands via loggerFromContext.
//
// Example:
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := New(stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
