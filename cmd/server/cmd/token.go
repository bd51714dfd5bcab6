package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"replikeep/internal/domain/session"
)

var (
	tokenOwner  string
	tokenDevice string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Выпустить токен доступа владельца",
	Long: `Печатает JWT, которым клиент входит командой "replikeep auth login".
Токен подписывается секретом JWT_SECRET сервера.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ttl := cfg.Auth.TokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}

		tokens, err := session.NewService(cfg.Auth.Secret, ttl, log)
		if err != nil {
			return err
		}

		token, err := tokens.Create(cmd.Context(), tokenOwner, tokenDevice)
		if err != nil {
			return fmt.Errorf("create token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenOwner, "owner", "o", "", "идентификатор владельца")
	tokenCmd.Flags().StringVarP(&tokenDevice, "device", "d", "", "идентификатор устройства")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "срок действия (по умолчанию TOKEN_TTL)")
	_ = tokenCmd.MarkFlagRequired("owner")
}
