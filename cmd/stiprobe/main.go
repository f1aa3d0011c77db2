// Command stiprobe runs mapper instances over single-table inheritance
// hierarchies and reports entity metadata drift between them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/stiprobe/internal/cli"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.GetExitCode(err)
}
