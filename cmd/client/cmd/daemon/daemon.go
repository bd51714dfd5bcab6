package daemon

import (
	"github.com/spf13/cobra"

	"replikeep/cmd/client/cmd/types"
)

var DaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Фоновая синхронизация",
	Long: `Синхронизирует по интервалу SYNC_INTERVAL_SECONDS, после локальных
изменений (с задержкой SYNC_DEBOUNCE_MS), при возврате на передний план
(SIGCONT) и при восстановлении связи с сервером.

Изменения, сделанные другими командами replikeep, демон замечает
через файл-сигнал в каталоге конфигурации.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}
		return app.RunDaemon(cmd.Context())
	},
}
