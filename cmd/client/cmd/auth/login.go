// cmd/client/cmd/auth/login.go
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"replikeep/cmd/client/cmd/types"
	"replikeep/cmd/client/cmd/ui"
)

var (
	tokenFlag string
	noSync    bool
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Войти по токену",
	Long: `Сохраняет токен доступа, выданный командой "replikeep-server token".
Токен проверяется на сервере. Без флага --token он читается из терминала
без отображения.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := types.App(cmd)
		if err != nil {
			return err
		}

		token := tokenFlag
		if token == "" {
			fmt.Print("Токен: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			if err != nil {
				return fmt.Errorf("ошибка чтения токена: %w", err)
			}
			fmt.Println()
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			return fmt.Errorf("токен не может быть пустым")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		owner, err := app.Login(ctx, token)
		if err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}
		ui.Success(cmd.OutOrStdout(), "Вход выполнен: %s", owner)

		if noSync {
			return nil
		}

		res, err := app.Sync(ctx)
		switch {
		case err != nil:
			ui.Warn(cmd.OutOrStdout(), "Синхронизация не удалась: %v", err)
			ui.Warn(cmd.OutOrStdout(), "Работа продолжится офлайн")
		case len(res.Errors()) > 0:
			ui.Warn(cmd.OutOrStdout(), "Синхронизация завершена с ошибками (%d)", len(res.Errors()))
		default:
			ui.Success(cmd.OutOrStdout(), "Данные синхронизированы: отправлено %d, получено %d", res.Pushed(), res.Pulled())
		}
		return nil
	},
}

func init() {
	LoginCmd.Flags().StringVarP(&tokenFlag, "token", "t", "", "токен доступа")
	LoginCmd.Flags().BoolVar(&noSync, "no-sync", false, "не синхронизировать после входа")
}
