package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/protect-viewer/internal/protect"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

func newConfigureCmd(a *app) *cobra.Command {
	var url, username, password string

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Show or change the saved dashboard address and credentials",
		Long: `Without flags, prints the saved dashboard address and username.
With flags, updates the given fields and keeps the others.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			flags := cmd.Flags()

			if !flags.Changed("url") && !flags.Changed("username") && !flags.Changed("password") {
				cfg, err := st.Require(cmd.Context())
				if errors.Is(err, store.ErrNotConfigured) {
					fmt.Fprintln(out, "Not configured. Run 'protect-viewer configure --url ... --username ... --password ...'.")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "URL:      %s\nUsername: %s\nPassword: %s\n", cfg.URL, cfg.Username, strings.Repeat("*", 8))
				return nil
			}

			cfg := protect.Configuration{}
			if saved, err := st.LoadConfig(cmd.Context()); err != nil {
				return err
			} else if saved != nil {
				cfg = *saved
			}
			if flags.Changed("url") {
				cfg.URL = strings.TrimSpace(url)
			}
			if flags.Changed("username") {
				cfg.Username = strings.TrimSpace(username)
			}
			if flags.Changed("password") {
				cfg.Password = password
			}
			if err := st.SaveConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "Saved configuration to %s.\n", st.Dir())
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Dashboard URL, e.g. https://192.168.1.1/protect/dashboard")
	cmd.Flags().StringVar(&username, "username", "", "Protect username")
	cmd.Flags().StringVar(&password, "password", "", "Protect password")
	return cmd
}
