// cmd/client/cmd/init.go
package cmd

import (
	"replikeep/cmd/client/cmd/auth"
	"replikeep/cmd/client/cmd/chat"
	"replikeep/cmd/client/cmd/daemon"
	"replikeep/cmd/client/cmd/entry"
	"replikeep/cmd/client/cmd/journal"
	"replikeep/cmd/client/cmd/settings"
	"replikeep/cmd/client/cmd/sync"
)

func init() {
	rootCmd.AddCommand(auth.AuthCmd)
	auth.AuthCmd.AddCommand(auth.LoginCmd)
	auth.AuthCmd.AddCommand(auth.LogoutCmd)
	auth.AuthCmd.AddCommand(auth.WhoamiCmd)

	rootCmd.AddCommand(entry.EntryCmd)
	entry.EntryCmd.AddCommand(entry.AddCmd, entry.EditCmd, entry.RemoveCmd, entry.ListCmd)

	rootCmd.AddCommand(journal.LogCmd)
	journal.LogCmd.AddCommand(journal.AddCmd, journal.ListCmd)

	rootCmd.AddCommand(chat.ChatCmd)
	chat.ChatCmd.AddCommand(chat.SayCmd, chat.ListCmd)

	rootCmd.AddCommand(settings.SettingsCmd)
	settings.SettingsCmd.AddCommand(settings.ShowCmd, settings.SetCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(daemon.DaemonCmd)
}
