package auth

import (
	"github.com/spf13/cobra"
)

// AuthCmd - родительская команда для входа и выхода
var AuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Управление входом",
	Long:  `Вход по токену, выданному сервером, выход и проверка текущего владельца.`,
}
