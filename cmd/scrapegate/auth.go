package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"scrapegate/pkg/auth"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the admin bearer token used by protected HTTP endpoints",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an admin token in the most secure backend available",
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the stored admin token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an admin token is currently stored",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	fmt.Print("Admin token: ")
	token, err := readSecret()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}
	if err := manager.Store(token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	fmt.Printf("Stored admin token %s\n", auth.MaskToken(token))
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}
	if err := manager.Delete(); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	fmt.Println("Admin token removed")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("create token manager: %w", err)
	}
	rec, err := manager.Retrieve()
	if err != nil {
		fmt.Println("No admin token stored")
		return nil
	}
	fmt.Printf("Admin token stored: %s\n", auth.MaskToken(rec.Token))
	return nil
}

// readSecret reads a line from stdin without echoing it back when stdin is a
// terminal, falling back to plain buffered input otherwise (piped input,
// redirected files).
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(raw), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
