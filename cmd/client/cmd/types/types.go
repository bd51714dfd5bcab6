package types

import (
	"errors"

	"github.com/spf13/cobra"

	"replikeep/internal/app/client"
)

type contextKey string

// ClientAppKey - ключ контекста команды, под которым лежит *client.App.
const ClientAppKey contextKey = "app"

var ErrNoApp = errors.New("приложение не инициализировано")

// App достаёт приложение из контекста команды.
func App(cmd *cobra.Command) (*client.App, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, ErrNoApp
	}
	app, ok := ctx.Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, ErrNoApp
	}
	return app, nil
}

// JSONOutput сообщает, передан ли глобальный флаг --json.
func JSONOutput(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("json")
	return err == nil && v
}
