/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finity-auth/apiserver/config"
	"github.com/finity-auth/apiserver/internal/audit"
	"github.com/finity-auth/apiserver/internal/db"
)

// auditCmd represents the audit command.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check environment, database, and OAuth configuration",
	Long: `Runs diagnostic checks against the current configuration:
environment variables, database connectivity, the admin account,
user records, and OAuth provider setup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.LoadConfig()

		dbConn, dbErr := db.Open(ctx, cfg.Database)
		if dbConn != nil {
			defer dbConn.Close()
		}
		runner := audit.NewRunner(cfg, dbConn)
		failed := false

		fmt.Println("== Environment ==")
		for _, check := range runner.CheckEnv() {
			if check.Set {
				fmt.Printf("OK   %s: %s\n", check.Name, check.Display)
			} else {
				fmt.Printf("FAIL %s: not set\n", check.Name)
				failed = true
			}
		}

		fmt.Println("\n== Database ==")
		if dbErr != nil {
			fmt.Printf("FAIL connection: %v\n", dbErr)
			failed = true
		} else if err := runner.CheckDatabase(ctx); err != nil {
			fmt.Printf("FAIL query: %v\n", err)
			failed = true
		} else {
			fmt.Println("OK   connection")
		}

		fmt.Println("\n== Admin user ==")
		adminCheck, err := runner.CheckAdminUser(ctx)
		switch {
		case err != nil:
			fmt.Printf("FAIL %v\n", err)
			failed = true
		case adminCheck.FoundNonAdmin:
			fmt.Printf("FAIL user exists but has role %s\n", adminCheck.Role)
			failed = true
		case !adminCheck.Found:
			fmt.Printf("FAIL admin user not found: %s\n", cfg.AdminEmail)
			failed = true
		default:
			fmt.Printf("OK   admin user found: %s\n", cfg.AdminEmail)
			fmt.Printf("     verified=%t active=%t has_password=%t\n",
				adminCheck.IsVerified, adminCheck.IsActive, adminCheck.HasPassword)
			if adminCheck.PasswordValid != nil {
				if *adminCheck.PasswordValid {
					fmt.Println("OK   admin password verification")
				} else {
					fmt.Println("FAIL admin password verification: mismatch")
					failed = true
				}
			}
		}

		fmt.Println("\n== Users ==")
		users, err := runner.ListUsers(ctx)
		if err != nil {
			fmt.Printf("FAIL %v\n", err)
			failed = true
		} else if len(users) == 0 {
			fmt.Println("WARN no users found")
		} else {
			fmt.Printf("OK   total users: %d\n", len(users))
			for _, user := range users {
				fmt.Printf("     %-40s %-6s verified=%-5t active=%-5t auth=%s\n",
					user.Email, user.Role, user.IsVerified, user.IsActive, user.AuthType)
			}
		}

		fmt.Println("\n== OAuth providers ==")
		for _, check := range runner.CheckOAuthProviders() {
			if check.Configured {
				fmt.Printf("OK   %s: %s\n", check.Provider, truncate(check.AuthorizationURL, 80))
			} else {
				fmt.Printf("FAIL %s: not configured\n", check.Provider)
				failed = true
			}
			fmt.Printf("     callback: %s\n", check.CallbackURL)
		}

		if failed {
			return fmt.Errorf("audit found problems")
		}
		fmt.Println("\naudit passed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}
