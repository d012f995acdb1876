package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newAskCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>...",
		Short: "Ask a question about the transcript library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newClient(v)
			defer c.Close()

			ans, err := c.Ask(cmd.Context(), strings.Join(args, " "), nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}
			fmt.Fprintln(out, strings.TrimSpace(ans.Answer))
			if len(ans.Sources) > 0 {
				fmt.Fprintf(out, "\nbased on %s:\n", ans.ContextSource)
				for _, s := range ans.Sources {
					fmt.Fprintf(out, "  %s\t%s\n", s.VideoID, s.VideoTitle)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw answer as JSON")
	return cmd
}
