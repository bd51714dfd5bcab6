package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Выйти",
	Long: `Удаляет токен и сбрасывает водяные знаки синхронизации.
Локальные записи остаются на устройстве.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.Logout(cmd.Context()); err != nil {
			return err
		}
		ui.Success(cmd.OutOrStdout(), "Выход выполнен")
		return nil
	},
}

var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Показать текущего владельца",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		owner, err := app.Owner()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), owner)
		return nil
	},
}
