package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/caltrack/internal/auth"
	"github.com/mmynk/caltrack/internal/models"
	"github.com/mmynk/caltrack/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Opening a store applies its migrations.
		return withStore(cmd.Context(), func(storage.Store) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		})
	},
}

var (
	userEmail    string
	userName     string
	userPassword string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create a password account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store storage.Store) error {
			user, err := auth.NewPasswordAuthenticator(store).Register(cmd.Context(), userEmail, userName, userPassword)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created user %s <%s>\n", user.ID, user.Email)
			return nil
		})
	},
}

var exportEmail string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a user's stored document as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store storage.Store) error {
			email, err := auth.NormalizeEmail(exportEmail)
			if err != nil {
				return err
			}
			user, err := store.GetUserByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("no account for %s", email)
			}

			doc, err := store.Get(cmd.Context(), models.UsersCollection, user.ID)
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%s has not created a profile yet", email)
			}
			if err != nil {
				return err
			}

			var out models.UserDocument
			if err := storage.Decode(doc, &out); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		})
	},
}

func init() {
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "Account email")
	createUserCmd.Flags().StringVar(&userName, "name", "", "Display name")
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "Password (at least 8 characters)")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")

	exportCmd.Flags().StringVar(&exportEmail, "email", "", "Account email")
	exportCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(migrateCmd, createUserCmd, exportCmd)
}
