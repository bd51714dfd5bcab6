package entry

import (
	"fmt"

	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
	"replikeep/internal/domain/record"
)

var AddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Создать запись",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		var p record.EntryPayload
		if len(args) == 1 {
			p.Name = args[0]
		}
		applyFlags(cmd, &p)

		rec, err := app.CreateRecord(cmd.Context(), p)
		if err != nil {
			return err
		}

		if !noPush {
			if _, err := app.PushCreated(cmd.Context(), rec); err != nil {
				ui.Warn(cmd.ErrOrStderr(), "Запись сохранена локально и уйдёт при следующей синхронизации: %v", err)
			}
		}

		if types.JSONOutput(cmd) {
			return ui.JSON(cmd.OutOrStdout(), rec)
		}
		ui.Success(cmd.OutOrStdout(), "Запись создана: %s", rec.SyncID)
		return nil
	},
}

var EditCmd = &cobra.Command{
	Use:   "edit <sync-id>",
	Short: "Изменить запись",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		rec, err := app.GetRecord(cmd.Context(), record.KindEntry, args[0])
		if err != nil {
			return err
		}
		decoded, err := record.DecodePayload(record.KindEntry, rec.Payload)
		if err != nil {
			return err
		}
		p := decoded.(record.EntryPayload)
		applyFlags(cmd, &p)

		rec, err = app.UpdateRecord(cmd.Context(), rec.SyncID, p)
		if err != nil {
			return err
		}
		if types.JSONOutput(cmd) {
			return ui.JSON(cmd.OutOrStdout(), rec)
		}
		ui.Success(cmd.OutOrStdout(), "Запись изменена: %s", rec.SyncID)
		return nil
	},
}

var RemoveCmd = &cobra.Command{
	Use:     "rm <sync-id>",
	Aliases: []string{"delete"},
	Short:   "Удалить запись",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.DeleteRecord(cmd.Context(), record.KindEntry, args[0]); err != nil {
			return err
		}
		ui.Success(cmd.OutOrStdout(), "Запись удалена: %s", args[0])
		return nil
	},
}

var ListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "Список записей",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		recs, err := app.ListRecords(cmd.Context(), record.KindEntry)
		if err != nil {
			return fmt.Errorf("ошибка получения записей: %w", err)
		}
		if types.JSONOutput(cmd) {
			return ui.JSON(cmd.OutOrStdout(), recs)
		}
		ui.Table(cmd.OutOrStdout(), recs, Describe)
		return nil
	},
}

func init() {
	bindPayloadFlags(AddCmd)
	AddCmd.Flags().BoolVar(&noPush, "no-push", false, "не отправлять запись сразу")
	bindPayloadFlags(EditCmd)
}
