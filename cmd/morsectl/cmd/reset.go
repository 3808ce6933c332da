package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moffa90/go-morsectl/dispatch"
)

func newResetCmd(a *app) *cobra.Command {
	var soft bool

	c := &cobra.Command{
		Use:   "reset",
		Short: "Reset the chip",
		Long: `Reset the chip through the transport. With --softreset the register
sequence is used instead, which needs a transport with register access.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.session(cmd.Context(), func(d *dispatch.Dispatcher) error {
				if err := d.Reset(cmd.Context(), soft); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reset complete.")
				return nil
			})
		},
	}
	c.Flags().BoolVarP(&soft, "softreset", "s", false, "do a soft reset")
	return c
}
