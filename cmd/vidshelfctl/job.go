package main

import (
	"encoding/json"
	"fmt"

	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newJobCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "job <jobId>",
		Short: "Print a job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			c := newClient(v)
			defer c.Close()

			j, err := c.GetJob(cmd.Context(), id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(j)
		},
	}
}

func parseJobID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid job id %q", common.ErrBadRequest, s)
	}
	return id, nil
}
