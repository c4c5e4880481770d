package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath, "portcullis-migrate")
			if err != nil {
				return err
			}
			defer a.close()
			// Open migrates.
			return a.openDB(cmd.Context())
		},
	}
}

func newSeedCmd(configPath *string) *cobra.Command {
	var withController bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the development fixture (rooms, users, NFC tags)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*configPath, "portcullis-seed")
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.openDB(cmd.Context()); err != nil {
				return err
			}
			return a.seedDev(cmd.Context(), withController)
		},
	}
	cmd.Flags().BoolVar(&withController, "controller", false, "also register the dev controller on the lab room")
	return cmd
}
