package cli

import (
	"github.com/spf13/cobra"

	"github.com/vietddude/ddq/internal/infra/datadog"
)

func (a *app) newLogsCmd() *cobra.Command {
	var q datadog.LogsQuery

	cmd := &cobra.Command{
		Use:   "logs QUERY",
		Short: "Search logs",
		Example: `  ddq logs 'service:web status:error' --from now-1h --limit 100
  ddq logs '*' --cursor eyJhZnRlciI6...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd)
			if err != nil {
				return err
			}

			q.Query = args[0]
			result, err := client.QueryLogs(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.writeResult(result)
		},
	}

	cmd.Flags().StringVar(&q.From, "from", "now-15m", "start of the time range")
	cmd.Flags().StringVar(&q.To, "to", "now", "end of the time range")
	cmd.Flags().Uint32Var(&q.Limit, "limit", 50, "maximum number of logs")
	cmd.Flags().StringVar(&q.Sort, "sort", "desc", "sort by timestamp: asc or desc")
	cmd.Flags().StringVar(&q.Cursor, "cursor", "", "continue from a previous page cursor")
	return cmd
}
