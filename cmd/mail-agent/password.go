package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/secret"
)

func newStorePasswordCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "store-password",
		Short: "Save the SMTP app password in the OS keyring",
		Long: `Read the SMTP app password from standard input and store it in the OS
keyring (macOS Keychain, GNOME Keyring, Windows Credential Manager).

The entry is named after SMTP_PASSWORD_KEYRING, or the SMTP login when that
is unset. Set SMTP_PASSWORD_KEYRING to the printed name to use it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			user := cfg.SMTP.PasswordKeyring
			if user == "" {
				user = cfg.SMTPUsername()
			}
			if user == "" {
				return errors.New("EMAIL_ADDRESS or SMTP_PASSWORD_KEYRING is required to name the keyring entry")
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "App password for %s: ", user)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading password: %w", err)
			}
			password := strings.TrimSpace(line)
			if password == "" {
				return errors.New("no password given")
			}

			if err := secret.NewKeyring(user).Set(password); err != nil {
				return fmt.Errorf("storing password in OS keyring: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored in the OS keyring as %q (service %s).\n", user, secret.KeyringService)
			return nil
		},
	}
}
