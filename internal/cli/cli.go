// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for chatcore.

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdAsk Command = iota
	CmdChat
	CmdModels
	CmdStatus
	CmdCache
	CmdSession
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	Model   string

	// Command-specific
	Query      string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `chatcore - chat backend client

Chatcore is the client-side core a chat frontend sits on: API client,
response cache, streaming assembler, and rate limiting.

Usage:
  chatcore ask "question"       Ask a single question (streams the reply)
  chatcore chat                 Interactive chat
  chatcore models               List available models
  chatcore status, s            Show backend and session status
  chatcore cache [stats|clear|sweep]  Cache management
  chatcore session [login|logout|status]  Session management
  chatcore version              Show version
  chatcore help                 Show this help

Flags:
  -m, --model NAME   Use a specific model (overrides config)
  -q, --quiet        Minimal output
  -v, --verbose      Verbose output

Environment:
  CHATCORE_BASE_URL    Backend URL (overrides config)
  CHATCORE_TOKEN       Session token
  CHATCORE_MODEL       Default model
  CHATCORE_PASSPHRASE  Passphrase for the encrypted session store

Examples:
  chatcore ask "Summarize the last release notes"
  chatcore ask -m large-v2 "Explain this error"
  chatcore cache stats
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, *Args) {
	return parse(os.Args[1:])
}

func parse(raw []string) (Command, *Args) {
	args := &Args{}

	if len(raw) == 0 {
		return CmdHelp, args
	}

	// Extract global flags first
	var positional []string
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "-m", "--model":
			if i+1 < len(raw) {
				i++
				args.Model = raw[i]
			}
		default:
			positional = append(positional, raw[i])
		}
	}

	if len(positional) == 0 {
		return CmdHelp, args
	}

	cmd := strings.ToLower(positional[0])
	rest := positional[1:]
	args.Raw = rest

	switch cmd {
	case "ask":
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "models":
		return CmdModels, args
	case "status", "s":
		return CmdStatus, args
	case "cache":
		if len(rest) > 0 {
			args.Subcommand = strings.ToLower(rest[0])
		}
		return CmdCache, args
	case "session":
		if len(rest) > 0 {
			args.Subcommand = strings.ToLower(rest[0])
		}
		return CmdSession, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, args
	}
}

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("chatcore %s (%s, %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}
