package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrehanahmed/IMAP-Migrate/ledger"
)

// lookupCmd inspects an existing ledger without touching either IMAP account:
// it lists every recorded transfer for a Message-ID. The header is not the
// idempotency key, so the same id can legitimately appear once per source
// mailbox.
func lookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <message-id>",
		Short: "List ledger records for a Message-ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := cmd.Flags().GetString("database")
			if err != nil {
				return err
			}

			led, err := ledger.Open(dbPath)
			if err != nil {
				return fmt.Errorf("ledger.Open: %w", err)
			}
			defer func() {
				_ = led.Close()
			}()

			msgID := strings.Trim(args[0], "<> \t")
			records, err := led.ByMessageID(msgID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no transfers recorded for <%s>\n", msgID)
				return nil
			}

			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s uid %s -> %s at %s\n",
					rec.SrcMailbox, rec.SrcUID, rec.DstMailbox,
					rec.TransferredAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().String("database", "", "Path to the ledger database")
	_ = cmd.MarkFlagRequired("database")
	return cmd
}
