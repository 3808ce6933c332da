package cmd

import (
	"github.com/spf13/cobra"

	"github.com/moffa90/go-morsectl/command"
	"github.com/moffa90/go-morsectl/dispatch"
)

// commandRow is one line of the command listing.
type commandRow struct {
	Name       string `json:"name" yaml:"name"`
	ID         string `json:"id" yaml:"id"`
	Interface  bool   `json:"requires_interface" yaml:"requires_interface"`
	DirectChip bool   `json:"direct_chip" yaml:"direct_chip"`
	Summary    string `json:"summary" yaml:"summary"`
}

func newCommandsCmd(a *app) *cobra.Command {
	var all bool

	c := &cobra.Command{
		Use:   "commands",
		Short: "List the commands the selected transport can carry",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return &usageError{err: err}
			}
			tp, err := transportFactory(a.cfg)
			if err != nil {
				return err
			}
			d := dispatch.New(tp)

			rows := make([]commandRow, 0)
			for _, desc := range d.Registry().Descriptors() {
				if !all && !d.Available(desc) {
					continue
				}
				rows = append(rows, describe(desc))
			}
			a.print(cmd, rows)
			return nil
		},
	}
	c.Flags().BoolVarP(&all, "all", "a", false, "include commands the transport cannot carry")
	return c
}

func describe(desc command.Descriptor) commandRow {
	return commandRow{
		Name:       desc.Name,
		ID:         desc.ID.String(),
		Interface:  desc.RequiresInterface,
		DirectChip: desc.DirectChip,
		Summary:    desc.Summary,
	}
}
