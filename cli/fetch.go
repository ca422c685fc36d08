package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newFetchCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [query]",
		Short: "Run a catalog query and print the joined records as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(v, cmd, args)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.query.Fetch(cmd.Context())
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(records)
		},
	}
}
