package settings

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
	domain "replikeep/internal/domain/settings"
)

var SettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Настройки владельца",
	Long: `Настройки сливаются между устройствами по полям:
секреты остаются локальными, флаги объединяются через ИЛИ,
остальные поля берутся с сервера, если там заданы.`,
}

var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Показать настройки",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		s, err := app.Settings(cmd.Context())
		if err != nil {
			return err
		}
		values := s.Values()
		if types.JSONOutput(cmd) {
			return ui.JSON(cmd.OutOrStdout(), values)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, f := range domain.Fields() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, values[f.Name], f.Strategy)
		}
		return tw.Flush()
	},
}

var SetCmd = &cobra.Command{
	Use:       "set <name> <value>",
	Short:     "Изменить настройку",
	Args:      cobra.ExactArgs(2),
	ValidArgs: domain.Names(),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		if err := app.SetSetting(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		if domain.IsSecret(args[0]) {
			ui.Success(cmd.OutOrStdout(), "Секрет %s сохранён", args[0])
			return nil
		}
		ui.Success(cmd.OutOrStdout(), "%s = %s", args[0], args[1])
		return nil
	},
}
