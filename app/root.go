// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "homelabwiki",
	Short: "HomelabWiki is a self-hosted wiki with LDAP authentication",
	Long: `HomelabWiki is a self-hosted wiki backend for homelab environments.
It serves a JSON API for Markdown pages, tags, file attachments, search and
exports, and delegates authentication to an LDAP/Active Directory server.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
