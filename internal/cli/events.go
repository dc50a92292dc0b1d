package cli

import (
	"github.com/spf13/cobra"

	"github.com/vietddude/ddq/internal/infra/datadog"
)

func (a *app) newEventsCmd() *cobra.Command {
	var q datadog.EventsQuery

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}

			result, err := client.QueryEvents(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.writeResult(result)
		},
	}

	cmd.Flags().StringVar(&q.Query, "query", "", "event search query")
	cmd.Flags().StringVar(&q.From, "from", "now-15m", "start of the time range")
	cmd.Flags().StringVar(&q.To, "to", "now", "end of the time range")
	cmd.Flags().Uint32Var(&q.Limit, "limit", 50, "maximum number of events")
	cmd.Flags().StringVar(&q.Sort, "sort", "desc", "sort by timestamp: asc or desc")
	return cmd
}
