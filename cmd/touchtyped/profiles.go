package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goggybox/touchtypEd/internal/config"
	"github.com/goggybox/touchtypEd/internal/store"
)

func newProfilesCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage saved calibration profiles",
	}

	open := func() (*store.Store, error) {
		cfg, err := config.Load(flags.configPath, flags.envFile)
		if err != nil {
			return nil, err
		}
		if err := ensureDir(cfg.Store.Path); err != nil {
			return nil, err
		}
		return store.New(cfg.Store.Path)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()

			profiles, err := st.Profiles().List()
			if err != nil {
				return err
			}
			active, _ := st.Settings().Get(store.KeyActiveProfile)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tNAME\tID\tUPDATED")
			for _, p := range profiles {
				mark := ""
				if p.ID == active {
					mark = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, p.Name, p.ID, p.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "use NAME",
		Short: "Make a profile active for the next run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open()
			if err != nil {
				return err
			}
			defer st.Close()

			p, err := st.Profiles().GetByName(args[0])
			if err != nil {
				return fmt.Errorf("profile %q: %w", args[0], err)
			}
			if _, err := st.Profiles().Activate(p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active profile: %s\n", p.Name)
			return nil
		},
	})

	return cmd
}
