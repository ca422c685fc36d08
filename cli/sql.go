package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newSQLCommand(v *viper.Viper) *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "sql [query]",
		Short: "Print the statement a catalog query compiles to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(v, cmd, args)
			if err != nil {
				return err
			}
			defer s.Close()

			sql, vars, err := s.query.ToSQL(cmd.Context())
			if err != nil {
				return err
			}

			if explain {
				sql = s.db.Dialector.Explain(sql, vars...)
			} else if len(vars) > 0 {
				sql = fmt.Sprintf("%s\n-- vars: %v", sql, vars)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), sql)
			return err
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "inline the bind vars into the statement")
	return cmd
}
