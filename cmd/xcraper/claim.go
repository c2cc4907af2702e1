package main

import (
	"fmt"

	"github.com/spf13/cobra"

	xerrors "github.com/muskansindhu/xcraper/pkg/errors"
	"github.com/muskansindhu/xcraper/pkg/logger"
	"github.com/muskansindhu/xcraper/pkg/store"
)

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim one account from the backup pool",
	Long: `Atomically claim one backup-eligible account: the account is flipped
inactive and printed. Exactly one caller can ever receive a given backup
account, so this is safe to run while a scrape round is in flight.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.Store.Path, logger.GetLogger())
		if err != nil {
			return err
		}
		defer st.Close()

		account, err := st.ClaimBackup(cmd.Context())
		if err != nil {
			if xerrors.IsType(err, xerrors.ErrorTypeClaimExhausted) {
				fmt.Println("backup pool is empty")
				return nil
			}
			return err
		}
		fmt.Printf("claimed %s (%s)\n", account.Username, account.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(claimCmd)
}
