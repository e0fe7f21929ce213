package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newNotificationsCmd(v *viper.Viper) *cobra.Command {
	var unread bool
	var limit int
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show your notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireToken(v); err != nil {
				return err
			}
			c := apiClient(v)
			count, err := c.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			items, err := c.ListNotifications(cmd.Context(), unread, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d unread\n", count)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, n := range items {
				mark := " "
				if n.ReadAt == nil {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, n.CreatedAt.Format("2006-01-02 15:04"), n.Type, n.Title, n.Message)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum notifications to show")
	return cmd
}
