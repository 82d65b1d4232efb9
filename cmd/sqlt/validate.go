package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/syssam/sqlt/compiler/load"
)

func newValidateCommand(log zerolog.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile the project file without writing any code",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, err := load.Load(configPath)
			if err != nil {
				return err
			}
			res, err := project.Compile()
			if err != nil {
				return err
			}
			specs := len(res.Freestanding)
			for _, e := range res.Entities {
				specs += len(e.Compiled)
			}
			log.Info().
				Int("entities", len(res.Entities)).
				Int("specs", specs).
				Msg("project is valid")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "sqlt.yaml", "path to the project file")
	return cmd
}
