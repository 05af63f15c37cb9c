// Command hades-solve runs a workflow over a problem file without a server.
//
//	hades-solve generate --size 64 --seed 1 > problem.json
//	hades-solve solve --problem problem.json --workflow workflow.yaml
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
