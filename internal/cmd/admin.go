package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/brahma/api-tracker/internal/repository"
	"github.com/brahma/api-tracker/internal/service"
	"github.com/spf13/cobra"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin users for the hit listing",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := openDatabase(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		authService := service.NewAuthService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryHours)
		user, err := authService.Register(cmd.Context(), adminEmail, adminPassword, adminName)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
		return nil
	},
}

var adminListCmd = &cobra.Command{
	Use:   "list",
	Short: "List admin users",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := openDatabase(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		authService := service.NewAuthService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryHours)
		users, err := authService.ListUsers(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role, u.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an admin user and revoke its tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := openDatabase(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()

		authService := service.NewAuthService(repository.NewUserRepository(db), cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryHours)
		if err := authService.DeleteUser(cmd.Context(), adminEmail); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "deleted admin %s\n", adminEmail)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	adminCreateCmd.Flags().StringVar(&adminPassword, "password", "", "admin password (min 8 characters)")
	adminCreateCmd.Flags().StringVar(&adminName, "name", "", "display name")
	_ = adminCreateCmd.MarkFlagRequired("email")
	_ = adminCreateCmd.MarkFlagRequired("password")

	adminDeleteCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	_ = adminDeleteCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(adminCreateCmd, adminListCmd, adminDeleteCmd)
	rootCmd.AddCommand(adminCmd)
}
