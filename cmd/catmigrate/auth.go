package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"catmigrate/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage catalog API credentials",
	Long: `Manage stored catalog API credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (for non-interactive deployments)

Never share your consumer key and secret or commit them to a repository!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [account]",
	Short: "Store catalog API credentials securely",
	Long: `Store a catalog API credential pair in the system keychain or an
encrypted file.

You will be prompted for:
  - Account name (if not provided; e.g. "production")
  - Consumer key (ck_...)
  - Consumer secret (cs_...)
  - API base URL (optional)

Generate the key pair in the store admin under
WooCommerce > Settings > Advanced > REST API with Read/Write permissions.`,
	Example: `  # Interactive login
  catmigrate auth login

  # Login with an account name
  catmigrate auth login production`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [account]",
	Short: "Remove stored credentials",
	Long: `Remove stored catalog API credentials.

If no account name is provided, you will be shown a list of stored
accounts to choose from. You can also remove all accounts at once.`,
	Example: `  # Interactive logout
  catmigrate auth logout

  # Logout specific account
  catmigrate auth logout production`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored catalog API accounts with sanitized credential information.`,
	RunE:  runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowAPIKeyGuide()

	fmt.Print("Ready to enter your API key pair? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'catmigrate auth login' when you're ready.")
		return nil
	}

	fmt.Println()

	if name == "" {
		fmt.Print("🏷  Account name (e.g. production): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read account name: %w", err)
		}
		name = strings.TrimSpace(input)
	}

	if name == "" {
		return fmt.Errorf("account name is required")
	}

	// Check if account already exists
	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("\n⚠️  Account '%s' already exists. Update credentials? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Println("\n🔐 Enter your key pair (hidden as you type):")
	fmt.Println()

	var consumerKey string
	for {
		fmt.Print("consumer key: ")
		consumerKey, err = readSecret()
		if err != nil {
			return fmt.Errorf("failed to read consumer key: %w", err)
		}

		if !strings.HasPrefix(consumerKey, "ck_") || len(consumerKey) < 10 {
			fmt.Println("\n❌ That doesn't look like a valid consumer key.")
			fmt.Println("   It should start with ck_ followed by hex characters.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				return fmt.Errorf("login cancelled")
			}
			continue
		}
		break
	}

	var consumerSecret string
	for {
		fmt.Print("\nconsumer secret: ")
		consumerSecret, err = readSecret()
		if err != nil {
			return fmt.Errorf("failed to read consumer secret: %w", err)
		}

		if !strings.HasPrefix(consumerSecret, "cs_") || len(consumerSecret) < 10 {
			fmt.Println("\n❌ That doesn't look like a valid consumer secret.")
			fmt.Println("   It should start with cs_ followed by hex characters.")
			fmt.Print("\nTry again? (Y/n): ")
			retry, _ := reader.ReadString('\n')
			if strings.ToLower(strings.TrimSpace(retry)) == "n" {
				return fmt.Errorf("login cancelled")
			}
			continue
		}
		break
	}

	fmt.Print("\n\n🌐 API base URL (press Enter to configure separately): ")
	baseURL, _ := reader.ReadString('\n')
	baseURL = strings.TrimSpace(baseURL)

	account := &auth.Account{
		Name:           name,
		ConsumerKey:    consumerKey,
		ConsumerSecret: consumerSecret,
		BaseURL:        baseURL,
		LastModified:   time.Now(),
	}

	sanitized := auth.SanitizeAccount(account)
	fmt.Println("\n📋 Summary:")
	fmt.Printf("   Account: %s\n", sanitized.Name)
	fmt.Printf("   Consumer key: %s\n", sanitized.ConsumerKey)
	fmt.Printf("   Consumer secret: %s\n", sanitized.ConsumerSecret)
	if baseURL != "" {
		fmt.Printf("   Base URL: %s\n", baseURL)
	}

	fmt.Println("\n💾 Storing credentials securely...")
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("\n🎉 Credentials stored for account '%s'\n", name)
	fmt.Println("\n📖 Quick Start:")
	fmt.Printf("   $ catmigrate run --account %s\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) > 0 {
		name := args[0]
		if err := manager.Delete(name); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		fmt.Println("Account removed: " + name)
		return nil
	}

	accounts, err := manager.List()
	if err != nil || len(accounts) == 0 {
		fmt.Println("No stored accounts found.")
		return nil
	}

	reader := bufio.NewReader(os.Stdin)

	if len(accounts) == 1 {
		account := accounts[0]
		fmt.Printf("Remove account '%s'? (y/N): ", account.Name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}

		if err := manager.Delete(account.Name); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		fmt.Println("Account removed: " + account.Name)
		return nil
	}

	fmt.Println("Select account to remove:")
	for i, account := range accounts {
		fmt.Printf("  %d. %s\n", i+1, account.Name)
	}
	fmt.Printf("  %d. Remove all accounts\n", len(accounts)+1)
	fmt.Printf("  0. Cancel\n\n")

	fmt.Print("Choice: ")
	input, _ := reader.ReadString('\n')

	var choice int
	fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice == len(accounts)+1:
		fmt.Print("Remove ALL accounts? This cannot be undone! (yes/N): ")
		confirm, _ := reader.ReadString('\n')
		if strings.TrimSpace(confirm) != "yes" {
			return nil
		}

		if err := manager.DeleteAll(); err != nil {
			return fmt.Errorf("failed to remove all accounts: %w", err)
		}
		fmt.Println("All accounts removed")
	case choice > 0 && choice <= len(accounts):
		account := accounts[choice-1]
		if err := manager.Delete(account.Name); err != nil {
			return fmt.Errorf("failed to remove account: %w", err)
		}
		fmt.Println("Account removed: " + account.Name)
	default:
		return fmt.Errorf("invalid choice")
	}
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Use 'catmigrate auth login' to add one.")
		return nil
	}

	fmt.Println("Stored Accounts")
	fmt.Println()

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Account: %s\n", i+1, sanitized.Name)
		fmt.Printf("   Consumer key: %s\n", sanitized.ConsumerKey)
		fmt.Printf("   Consumer secret: %s\n", sanitized.ConsumerSecret)
		if sanitized.BaseURL != "" {
			fmt.Printf("   Base URL: %s\n", sanitized.BaseURL)
		}
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
	return nil
}

// readSecret reads a secret from stdin without echoing
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after secret
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
