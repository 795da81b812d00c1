package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <connector>",
	Short: "Stop a single running connector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newControlClient(controlSocket())
		answer, err := client.send("connectors stop " + args[0])
		if err != nil {
			exitWithError("control-plane query failed", err)
		}
		fmt.Println(answer)
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload <connector>",
	Short: "Reload a connector's configuration and station list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newControlClient(controlSocket())
		answer, err := client.send("connectors reload " + args[0])
		if err != nil {
			exitWithError("control-plane query failed", err)
		}
		fmt.Println(answer)
		return nil
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Ask the daemon to gracefully exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newControlClient(controlSocket())
		answer, err := client.send("general shutdown")
		if err != nil {
			exitWithError("control-plane query failed", err)
		}
		fmt.Println(answer)
		return nil
	},
}
