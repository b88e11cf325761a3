// ChitChat CLI - line-based terminal client.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/SauRavRwT/ChitChat/clients/go/chitchat"
	"github.com/SauRavRwT/ChitChat/internal/models"
)

func main() {
	server := flag.String("server", envOr("CHITCHAT_URL", "http://localhost:8080"), "server base URL")
	token := flag.String("token", os.Getenv("CHITCHAT_TOKEN"), "access token")
	identity := flag.String("identity", "", "own identity (email), must match the token subject")
	peer := flag.String("peer", "", "identity to chat with")
	flag.Parse()

	if *token == "" || *identity == "" || *peer == "" {
		fmt.Fprintln(os.Stderr, "usage: chitchat -identity you@example.com -peer them@example.com -token <token> [-server URL]")
		os.Exit(1)
	}

	client, err := chitchat.Dial(*server, *token, *identity)
	exitOnError(err)
	defer client.Close()

	client.OnMessage = func(msg models.Message) {
		if msg.Sender == *identity {
			return
		}
		content := msg.Content
		if msg.Translated != "" {
			content = msg.Translated + "  (" + msg.Content + ")"
		}
		fmt.Printf("%s: %s\n", msg.Sender, content)
	}
	client.OnRoster = func(roster []models.RosterEntry) {
		names := make([]string, 0, len(roster))
		for _, entry := range roster {
			names = append(names, entry.Identity)
		}
		fmt.Printf("online: %s\n", strings.Join(names, ", "))
	}
	client.OnError = func(code, message string) {
		fmt.Fprintf(os.Stderr, "error [%s]: %s\n", code, message)
	}

	exitOnError(client.Join(*peer))
	client.Open(*peer)
	exitOnError(client.Resync(*peer))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}
		if err := client.Send(*peer, line); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			break
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
