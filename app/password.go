package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spacehome/spacehome/internal/auth"
)

func init() { //nolint: gochecknoinits
	hashPasswordCmd.Flags().StringVar(&plainPassword, "password", "", "Password to hash (read from stdin when empty)")

	rootCmd.AddCommand(hashPasswordCmd)
}

// ErrEmptyPassword is returned when no password was supplied.
var ErrEmptyPassword = errors.New("password is empty")

//nolint:gochecknoglobals
var (
	plainPassword string

	hashPasswordCmd = &cobra.Command{
		Use:   "hash-password",
		Short: "Print an argon2id hash for Admin.PasswordHash",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := plainPassword
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			hash, err := hashPassword(password)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)

			return err
		},
	}
)

// readPassword returns the first line of r without the line break.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	return auth.HashPassword(password)
}
