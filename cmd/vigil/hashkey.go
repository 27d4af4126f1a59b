package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-grid/vigil/internal/auth"
)

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [key]",
	Short: "Hash an operator API key for VIGIL_API_KEY_HASH",
	Long: `Print the Argon2id hash of an operator API key. Set the output as
VIGIL_API_KEY_HASH to require the key on POST /work-orders. The key is read
from the argument or, when absent, from the first line of stdin.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := ""
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read key: %w", err)
			}
			key = line
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("key must not be empty")
		}
		hash, err := auth.HashAPIKey(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashKeyCmd)
}
