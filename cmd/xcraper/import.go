package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/store"
)

var importAsBackup bool

var importCmd = &cobra.Command{
	Use:   "import <credential-file>",
	Short: "Import accounts from a credential list",
	Long: `Import accounts into the local account database.

The credential file carries one account per line with at least six
colon-separated fields:

  username:password:email:email_password:auth_token:mfa_code_url

A cookie pair is derived from the auth token at import time. Lines whose
username already exists in the database are skipped. Use --backup to land
the accounts in the backup pool instead of the working set.`,
	Example: `  # Import working accounts
  xcraper import account_creds.txt

  # Import reserve accounts into the backup pool
  xcraper import reserve_creds.txt --backup`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.GetLogger()

		st, err := store.Open(cfg.Store.Path, log)
		if err != nil {
			return err
		}
		defer st.Close()

		inserted, err := st.ImportFile(cmd.Context(), args[0], importAsBackup)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d accounts into %s\n", inserted, cfg.Store.Path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().BoolVar(&importAsBackup, "backup", false, "import accounts into the backup pool")
}
