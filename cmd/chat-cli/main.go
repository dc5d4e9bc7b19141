package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"chat-backend/internal/domain"
	"chat-backend/internal/infrastructure/security"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
	devSecret string
	devIssuer string
)

var rootCmd = &cobra.Command{
	Use:   "chat-cli",
	Short: "Interactive terminal client for chat-server",
	Long: `chat-cli is a menu-driven client for the chat-server HTTP API.

Pass a bearer token with --token, or mint a development token locally with
--dev-secret (the server's auth.jwt_secret).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newAPIClient(serverURL)
		c.token = token
		ui := &cli{api: c, in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
		return ui.run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "chat-server base URL")
	rootCmd.Flags().StringVar(&token, "token", os.Getenv("CHAT_TOKEN"), "bearer token (or CHAT_TOKEN)")
	rootCmd.Flags().StringVar(&devSecret, "dev-secret", os.Getenv("CHAT_AUTH_JWT_SECRET"), "shared secret for minting development tokens")
	rootCmd.Flags().StringVar(&devIssuer, "dev-issuer", os.Getenv("CHAT_AUTH_ISSUER"), "issuer for minted development tokens")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	api           *apiClient
	in            *bufio.Reader
	out           io.Writer
	lastSessionID string
}

var errQuit = errors.New("quit")

func (c *cli) run(ctx context.Context) error {
	fmt.Fprintln(c.out, "Welcome to chat-cli")
	for {
		var err error
		if c.api.token == "" {
			err = c.authMenu(ctx)
		} else {
			err = c.mainMenu(ctx)
		}
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out, "Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (c *cli) prompt(label string) (string, error) {
	fmt.Fprint(c.out, label)
	input, err := c.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (c *cli) authMenu(ctx context.Context) error {
	fmt.Fprintln(c.out, "\n=== Auth Menu ===")
	fmt.Fprintln(c.out, "1. Paste token")
	fmt.Fprintln(c.out, "2. Development login")
	fmt.Fprintln(c.out, "3. Exit")
	choice, err := c.prompt("> ")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		tok, err := c.prompt("Token: ")
		if err != nil {
			return err
		}
		c.login(ctx, tok)
	case "2":
		if devSecret == "" {
			fmt.Fprintln(c.out, "Development login needs --dev-secret")
			return nil
		}
		uid, err := c.prompt("User ID: ")
		if err != nil {
			return err
		}
		if uid == "" {
			fmt.Fprintln(c.out, "User ID is required")
			return nil
		}
		tok, _, err := security.GenerateToken(devSecret, devIssuer, domain.Identity{UserID: uid}, 24*time.Hour)
		if err != nil {
			fmt.Fprintf(c.out, "Failed to mint token: %v\n", err)
			return nil
		}
		c.login(ctx, tok)
	case "3":
		return errQuit
	default:
		fmt.Fprintln(c.out, "Invalid choice")
	}
	return nil
}

func (c *cli) login(ctx context.Context, tok string) {
	c.api.token = tok
	uid, err := c.api.me(ctx)
	if err != nil {
		c.api.token = ""
		fmt.Fprintf(c.out, "Login failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Logged in as %s\n", uid)
}

func (c *cli) mainMenu(ctx context.Context) error {
	fmt.Fprintln(c.out, "\n=== Main Menu ===")
	fmt.Fprintln(c.out, "1. Start New Chat")
	if c.lastSessionID != "" {
		fmt.Fprintf(c.out, "2. Resume Chat (%s)\n", c.lastSessionID)
	} else {
		fmt.Fprintln(c.out, "2. Resume Chat (No recent session)")
	}
	fmt.Fprintln(c.out, "3. List Sessions")
	fmt.Fprintln(c.out, "4. View History")
	fmt.Fprintln(c.out, "5. Rename Session")
	fmt.Fprintln(c.out, "6. Delete Session")
	fmt.Fprintln(c.out, "7. Logout")
	fmt.Fprintln(c.out, "8. Exit")
	choice, err := c.prompt("> ")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		return c.newChat(ctx)
	case "2":
		if c.lastSessionID == "" {
			fmt.Fprintln(c.out, "No recent session to resume. Please start a new chat.")
			return nil
		}
		return c.chatLoop(ctx, c.lastSessionID)
	case "3":
		c.listSessions(ctx)
	case "4":
		return c.history(ctx)
	case "5":
		return c.rename(ctx)
	case "6":
		return c.delete(ctx)
	case "7":
		c.api.token = ""
		c.lastSessionID = ""
		fmt.Fprintln(c.out, "Logged out")
	case "8":
		return errQuit
	default:
		fmt.Fprintln(c.out, "Invalid choice")
	}
	return nil
}

func (c *cli) newChat(ctx context.Context) error {
	title, err := c.prompt("Session Title (optional): ")
	if err != nil {
		return err
	}
	s, err := c.api.createSession(ctx, title)
	if err != nil {
		fmt.Fprintf(c.out, "Failed to create session: %v\n", err)
		return nil
	}
	fmt.Fprintf(c.out, "Session created: %s (%s)\n", s.ID, s.Title)
	c.lastSessionID = s.ID
	return c.chatLoop(ctx, s.ID)
}

func (c *cli) chatLoop(ctx context.Context, sessionID string) error {
	fmt.Fprintln(c.out, "Type 'exit' to leave the chat.")
	for {
		msg, err := c.prompt("You: ")
		if err != nil {
			return err
		}
		if msg == "exit" {
			return nil
		}
		if msg == "" {
			continue
		}
		ex, err := c.api.send(ctx, sessionID, msg)
		if err != nil {
			fmt.Fprintf(c.out, "Error sending message: %v\n", err)
			continue
		}
		fmt.Fprintf(c.out, "Bot: %s\n", ex.Assistant.Text)
	}
}

func (c *cli) listSessions(ctx context.Context) {
	sessions, err := c.api.listSessions(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(c.out, "No sessions yet")
		return
	}
	for _, s := range sessions {
		fmt.Fprintf(c.out, "%s  %s  %s\n", s.ID, time.UnixMilli(s.UpdatedAt).Format("2006-01-02 15:04"), s.Title)
	}
}

func (c *cli) sessionID() (string, error) {
	label := "Enter Session ID"
	if c.lastSessionID != "" {
		label += fmt.Sprintf(" (default: %s)", c.lastSessionID)
	}
	id, err := c.prompt(label + ": ")
	if err != nil {
		return "", err
	}
	if id == "" {
		id = c.lastSessionID
	}
	if id == "" {
		fmt.Fprintln(c.out, "Session ID is required")
	}
	return id, nil
}

func (c *cli) history(ctx context.Context) error {
	id, err := c.sessionID()
	if err != nil || id == "" {
		return err
	}
	msgs, err := c.api.messages(ctx, id)
	if err != nil {
		fmt.Fprintf(c.out, "Failed to retrieve history: %v\n", err)
		return nil
	}
	for _, m := range msgs {
		fmt.Fprintf(c.out, "[%s] %s: %s\n", time.UnixMilli(m.TS).Format("15:04:05"), m.Role, m.Text)
	}
	return nil
}

func (c *cli) rename(ctx context.Context) error {
	id, err := c.sessionID()
	if err != nil || id == "" {
		return err
	}
	title, err := c.prompt("New title: ")
	if err != nil {
		return err
	}
	if err := c.api.renameSession(ctx, id, title); err != nil {
		fmt.Fprintf(c.out, "Rename failed: %v\n", err)
		return nil
	}
	fmt.Fprintln(c.out, "Renamed")
	return nil
}

func (c *cli) delete(ctx context.Context) error {
	id, err := c.sessionID()
	if err != nil || id == "" {
		return err
	}
	if err := c.api.deleteSession(ctx, id); err != nil {
		fmt.Fprintf(c.out, "Delete failed: %v\n", err)
		return nil
	}
	if id == c.lastSessionID {
		c.lastSessionID = ""
	}
	fmt.Fprintln(c.out, "Deleted")
	return nil
}
