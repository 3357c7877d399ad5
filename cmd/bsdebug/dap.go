package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/bsdebug/client/internal/dap"
)

var dapCmd = &cobra.Command{
	Use:   "dap",
	Short: "Speak the Debug Adapter Protocol over stdin/stdout",
	RunE:  runDAP,
}

func runDAP(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}

	bridge := dap.NewBridge(os.Stdin, os.Stdout, dap.Options{
		Logger:  sess.logger,
		Limiter: sess.limiter,
	})
	return bridge.Run(context.Background())
}
