package cli

import (
	"github.com/spf13/cobra"

	"github.com/vietddude/ddq/internal/core/apperror"
	"github.com/vietddude/ddq/internal/core/timeexpr"
)

func (a *app) newMetricsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "metrics QUERY",
		Short:   "Query timeseries points",
		Example: `  ddq metrics 'avg:system.cpu.user{env:prod}' --from now-1h`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			fromUnix, err := timeexpr.ParseToUnix(from, now)
			if err != nil {
				return apperror.Usage("Invalid --from: %s", err)
			}
			toUnix, err := timeexpr.ParseToUnix(to, now)
			if err != nil {
				return apperror.Usage("Invalid --to: %s", err)
			}
			if toUnix <= fromUnix {
				return apperror.Usage("--to must be after --from.")
			}

			client, err := a.client(cmd)
			if err != nil {
				return err
			}

			result, err := client.QueryMetrics(cmd.Context(), args[0], fromUnix, toUnix)
			if err != nil {
				return err
			}
			return a.writeResult(result)
		},
	}

	cmd.Flags().StringVar(&from, "from", "now-15m", "start of the time range")
	cmd.Flags().StringVar(&to, "to", "now", "end of the time range")
	return cmd
}
