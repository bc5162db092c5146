// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session management command handler for the chatcore CLI.
//
// Handles "chatcore session <login|logout|status>". Tokens are stored
// encrypted at rest; the passphrase comes from CHATCORE_PASSPHRASE or an
// interactive prompt.

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/chatcore/internal/auth"
	"github.com/jeranaias/chatcore/internal/config"
)

// HandleSession processes the session command.
func HandleSession(args *Args) {
	cfg, err := config.Load()
	if err != nil {
		Fatal(err)
	}
	tokenPath, err := cfg.TokenPath()
	if err != nil {
		Fatal(err)
	}
	store := auth.NewTokenStore(tokenPath)

	switch args.Subcommand {
	case "login":
		sessionLogin(store)
	case "logout":
		sessionLogout(store)
	case "", "status":
		sessionStatus(cfg, store, tokenPath)
	default:
		fmt.Fprintf(os.Stderr, "Unknown session subcommand %q. Use login, logout, or status.\n", args.Subcommand)
		os.Exit(1)
	}
}

func sessionLogin(store *auth.TokenStore) {
	token := promptLine("Token: ")
	if token == "" {
		Fatal(fmt.Errorf("no token provided"))
	}

	passphrase := os.Getenv("CHATCORE_PASSPHRASE")
	if passphrase == "" {
		passphrase = promptLine("Passphrase (encrypts the stored token): ")
	}
	if passphrase == "" {
		Fatal(fmt.Errorf("no passphrase provided"))
	}

	if err := store.Save(token, passphrase); err != nil {
		Fatal(err)
	}
	fmt.Println("Session saved. Run chatcore status to verify.")
}

func sessionLogout(store *auth.TokenStore) {
	if !store.Exists() {
		fmt.Println("No stored session.")
		return
	}
	if err := store.Delete(); err != nil {
		Fatal(err)
	}
	fmt.Println("Signed out. Stored session removed.")
}

func sessionStatus(cfg *config.Config, store *auth.TokenStore, tokenPath string) {
	switch {
	case cfg.API.Token != "":
		fmt.Println("Session: token from environment (not stored)")
	case store.Exists():
		fmt.Printf("Session: encrypted token at %s\n", tokenPath)
	default:
		fmt.Println("Session: signed out")
	}
}

// promptLine reads one trimmed line from stdin. The prompt goes to stderr
// so command output stays pipeable.
func promptLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
