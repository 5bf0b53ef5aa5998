package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"epsteindl/pkg/auth"
	"epsteindl/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	authCookie    string
	authUserAgent string
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored identity tokens",
	Long: `Keep the identity cookie out of the config file.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (EPSTEINDL_COOKIE, read only)

Commands use the "default" token unless --profile names another. A cookie
given with --cookie or EPSTEINDL_COOKIE always wins over a stored token.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Store an identity token",
	Long: `Store an identity cookie under a name (default: "default").

Without --cookie you are prompted for the value, hidden as you type.`,
	Example: `  epsteindl auth set
  epsteindl auth set mirror --cookie "justiceGovAgeVerified=true; other=1"`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthSet,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored tokens",
	Args:  cobra.NoArgs,
	Run:   runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	Run:   runAuthRemove,
}

func init() {
	authSetCmd.Flags().StringVar(&authCookie, "cookie", "", "cookie header value")
	authSetCmd.Flags().StringVar(&authUserAgent, "user-agent", "", "user agent to send with this token")

	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func tokenName(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultProfile
}

func newManager() *auth.Manager {
	manager, err := auth.NewManager()
	if err != nil {
		fail("Failed to initialize token store", err)
	}
	return manager
}

func runAuthSet(cmd *cobra.Command, args []string) {
	manager := newManager()
	name := tokenName(args)

	cookie := authCookie
	if cookie == "" {
		fmt.Printf("Cookie for %q (hidden): ", name)
		var err error
		cookie, err = readPassword()
		if err != nil {
			fail("Failed to read cookie", err)
		}
	}

	token := &auth.Token{
		Name:         name,
		Cookie:       strings.TrimSpace(cookie),
		UserAgent:    strings.TrimSpace(authUserAgent),
		LastModified: time.Now(),
	}
	if err := manager.Store(token); err != nil {
		fail("Failed to store token", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Token saved: %s", name))
}

func runAuthList(cmd *cobra.Command, args []string) {
	tokens, err := newManager().List()
	if err != nil {
		fail("Failed to list tokens", err)
	}
	if len(tokens) == 0 {
		ui.PrintDim("No stored tokens. Add one with 'epsteindl auth set'.")
		return
	}

	ui.PrintHighlight("Stored Tokens")
	for _, t := range tokens {
		s := auth.SanitizeToken(t)
		line := fmt.Sprintf("  %-12s %s", s.Name, s.Cookie)
		if s.UserAgent != "" {
			line += "  ua: " + s.UserAgent
		}
		if !s.LastModified.IsZero() {
			line += "  (" + s.LastModified.Format("2006-01-02 15:04") + ")"
		}
		ui.Print(line)
	}
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	name := tokenName(args)
	if err := newManager().Delete(name); err != nil {
		fail("Failed to remove token", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Token removed: %s", name))
}

// readPassword reads a line without echo when stdin is a terminal
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return string(password), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
