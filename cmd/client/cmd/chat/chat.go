package chat

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
	"replikeep/internal/domain/record"
)

var ChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Сообщения диалогов",
	Long: `Сообщения синхронизируются только в пределах окна MESSAGE_WINDOW_DAYS
и не получают статуса синхронизации.`,
}

var (
	thread string
	role   string
)

var SayCmd = &cobra.Command{
	Use:   "say <text...>",
	Short: "Записать сообщение",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		rec, err := app.CreateRecord(cmd.Context(), record.MessagePayload{
			ThreadSyncID: thread,
			Role:         role,
			Content:      strings.Join(args, " "),
		})
		if err != nil {
			return err
		}
		ui.Success(cmd.OutOrStdout(), "Сообщение сохранено: %s", rec.SyncID)
		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Показать сообщения",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		recs, err := app.ListRecords(cmd.Context(), record.KindMessage)
		if err != nil {
			return err
		}
		if thread != "" {
			recs = inThread(recs, thread)
		}
		if types.JSONOutput(cmd) {
			return ui.JSON(cmd.OutOrStdout(), recs)
		}
		ui.Table(cmd.OutOrStdout(), recs, describe)
		return nil
	},
}

func inThread(recs []*record.Record, thread string) []*record.Record {
	out := recs[:0]
	for _, r := range recs {
		p, err := record.DecodePayload(record.KindMessage, r.Payload)
		if err == nil && p.(record.MessagePayload).ThreadSyncID == thread {
			out = append(out, r)
		}
	}
	return out
}

func describe(r *record.Record) string {
	p, err := record.DecodePayload(record.KindMessage, r.Payload)
	if err != nil {
		return "<повреждена>"
	}
	m := p.(record.MessagePayload)
	content := m.Content
	if len([]rune(content)) > 60 {
		content = string([]rune(content)[:57]) + "..."
	}
	return fmt.Sprintf("%s: %s", m.Role, content)
}

func init() {
	SayCmd.Flags().StringVar(&thread, "thread", "", "sync id диалога")
	SayCmd.Flags().StringVar(&role, "role", "user", "роль автора (user, assistant, system)")
	ListCmd.Flags().StringVar(&thread, "thread", "", "показать только этот диалог")
}
