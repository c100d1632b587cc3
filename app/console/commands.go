package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"webknight/app/console/handlers"
)

func addCredentialFlags(cmd *cobra.Command) {
	cmd.Flags().String("email", "", "Account email (required)")
	cmd.Flags().String("password", "", "Account password (required)")
	for _, name := range []string{"email", "password"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}

func credentials(cmd *cobra.Command) (string, string, error) {
	email, err := cmd.Flags().GetString("email")
	if err != nil {
		return "", "", fmt.Errorf("failed to get email flag: %w", err)
	}
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return "", "", fmt.Errorf("failed to get password flag: %w", err)
	}
	return email, password, nil
}

func signInCmd(app func() *handlers.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in as an administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			return app().SignIn(cmd.Context(), email, password)
		},
	}
	addCredentialFlags(cmd)
	return cmd
}

func signUpCmd(app func() *handlers.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a new account",
		Long:  "Create a new account. New accounts never receive admin privileges.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, password, err := credentials(cmd)
			if err != nil {
				return err
			}
			return app().SignUp(cmd.Context(), email, password)
		},
	}
	addCredentialFlags(cmd)
	return cmd
}

func signOutCmd(app func() *handlers.App) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Revoke the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().SignOut(cmd.Context())
		},
	}
}

func whoAmICmd(app func() *handlers.App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().WhoAmI(cmd.Context())
		},
	}
}

func refreshCmd(app func() *handlers.App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app().Refresh(cmd.Context())
		},
	}
}

func fetchCmd(app func() *handlers.App) *cobra.Command {
	var opts handlers.FetchOptions

	cmd := &cobra.Command{
		Use:   "fetch <file-path>",
		Short: "Get a signed URL for an uploaded file, or download it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.FilePath = args[0]
			return app().Fetch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "Storage bucket, server default when empty")
	cmd.Flags().BoolVar(&opts.Download, "download", false, "Download the file instead of printing a signed URL")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Where to save the file")

	return cmd
}
