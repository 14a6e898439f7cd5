package main

import (
	"fmt"

	"github.com/devlog-app/backend/internal/database"
	"github.com/devlog-app/backend/internal/models"
	"github.com/spf13/cobra"
)

var promoteRole string

func init() {
	promoteCmd.Flags().StringVar(&promoteRole, "role", string(models.RoleAdmin),
		"Role to assign: user, moderator or admin")
}

var promoteCmd = &cobra.Command{
	Use:   "promote <username>",
	Short: "Change a user's role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := models.Role(promoteRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q (want user, moderator or admin)", promoteRole)
		}

		if err := database.Initialize(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		var user models.User
		if err := database.DB.Where("username = ?", args[0]).First(&user).Error; err != nil {
			return fmt.Errorf("user not found: %s", args[0])
		}

		if user.Role == role {
			fmt.Printf("⚠️  User %s already has role %s\n", user.Username, role)
			return nil
		}

		if err := database.DB.Model(&user).UpdateColumn("role", role).Error; err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		fmt.Printf("✓ Role %s granted to %s (%s)\n", role, user.Username, user.Email)
		return nil
	},
}
