// Package journal - команды журнальных записей (тип log).
package journal

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
	"replikeep/internal/domain/record"
)

var LogCmd = &cobra.Command{
	Use:   "log",
	Short: "Журнал по записям",
	Long: `Журнальные записи привязаны к основной записи. Синхронизируются
только записи, созданные в пределах окна LOG_WINDOW_DAYS.`,
}

var note string

var AddCmd = &cobra.Command{
	Use:   "add <entry-sync-id> <value>",
	Short: "Добавить значение в журнал",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("значение должно быть числом: %w", err)
		}

		rec, err := app.CreateRecord(cmd.Context(), record.LogPayload{
			EntrySyncID: args[0],
			Value:       value,
			Note:        note,
		})
		if err != nil {
			return err
		}
		ui.Success(cmd.OutOrStdout(), "Добавлено в журнал: %s", rec.SyncID)
		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Показать журнал",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		recs, err := app.ListRecords(cmd.Context(), record.KindLog)
		if err != nil {
			return err
		}
		if types.JSONOutput(cmd) {
			return ui.JSON(cmd.OutOrStdout(), recs)
		}
		ui.Table(cmd.OutOrStdout(), recs, describe)
		return nil
	},
}

func describe(r *record.Record) string {
	p, err := record.DecodePayload(record.KindLog, r.Payload)
	if err != nil {
		return "<повреждена>"
	}
	l := p.(record.LogPayload)
	out := fmt.Sprintf("%s: %g", l.EntrySyncID, l.Value)
	if l.Note != "" {
		out += " (" + l.Note + ")"
	}
	return out
}

func init() {
	AddCmd.Flags().StringVarP(&note, "note", "m", "", "комментарий")
}
