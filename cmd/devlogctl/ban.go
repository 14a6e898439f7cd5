package main

import (
	"fmt"
	"time"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/models"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var unban bool

func init() {
	banCmd.Flags().BoolVar(&unban, "unban", false, "Lift the ban instead of imposing it")
}

var banCmd = &cobra.Command{
	Use:   "ban <username>",
	Short: "Ban a user and revoke their sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		var user models.User
		if err := database.DB.Where("username = ?", args[0]).First(&user).Error; err != nil {
			return fmt.Errorf("user not found: %s", args[0])
		}

		if unban {
			if !user.IsBanned {
				fmt.Printf("⚠️  User %s is not banned\n", user.Username)
				return nil
			}
			if err := database.DB.Model(&user).UpdateColumn("is_banned", false).Error; err != nil {
				return fmt.Errorf("failed to lift ban: %w", err)
			}
			fmt.Printf("✓ Ban lifted for %s (%s)\n", user.Username, user.Email)
			return nil
		}

		if user.IsBanned {
			fmt.Printf("⚠️  User %s is already banned\n", user.Username)
			return nil
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&user).UpdateColumn("is_banned", true).Error; err != nil {
				return err
			}
			now := time.Now().UTC()
			return tx.Model(&models.AuthSession{}).
				Where("user_id = ? AND revoked_at IS NULL", user.ID).
				UpdateColumn("revoked_at", now).Error
		})
		if err != nil {
			return fmt.Errorf("failed to ban user: %w", err)
		}

		fmt.Printf("✓ User %s banned and sessions revoked\n", user.Username)
		return nil
	},
}
