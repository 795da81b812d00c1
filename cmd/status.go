package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [connector]",
	Short: "Query connector status over the control-plane socket",
	Long: `With no argument, lists every connector the daemon manages. With a
connector name, reports that connector's current lifecycle state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newControlClient(controlSocket())
		query := "connectors list"
		if len(args) == 1 {
			query = "connectors status " + args[0]
		}
		answer, err := client.send(query)
		if err != nil {
			exitWithError("control-plane query failed", err)
		}
		fmt.Println(answer)
		return nil
	},
}
