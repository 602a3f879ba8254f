package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"os/user"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/switchboard-dev/switchboard/internal/config"
	"github.com/switchboard-dev/switchboard/internal/orchestrator"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	agentColor  = color.New(color.FgGreen)
	infoColor   = color.New(color.Faint)
	errColor    = color.New(color.FgRed)
)

func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	roster, err := loadRoster()
	if err != nil {
		return err
	}

	orch, registry, client, signals, err := buildOrchestrator(cfg, roster)
	if err != nil {
		return err
	}
	defer signals.Close()

	if userID == "" {
		userID = "local"
		if u, err := user.Current(); err == nil && u.Username != "" {
			userID = u.Username
		}
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C cancels the in-flight turn and exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	infoColor.Printf("session %s\n", sessionID)
	infoColor.Println("agents: " + rosterNames(registry))
	infoColor.Println("prefix a message with @<agent> to skip routing; /quit to exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		promptColor.Print("you> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}
		if input == "/usage" {
			in, out := client.Tracker().Total()
			infoColor.Printf("tokens: %d in / %d out across %d calls (~$%.4f)\n",
				in, out, client.Tracker().Calls(), client.Tracker().Cost())
			continue
		}

		req := orchestrator.Request{
			Input:     input,
			UserID:    userID,
			SessionID: sessionID,
		}
		if forced, rest, ok := parseForced(input); ok {
			req.ForcedAgent = forced
			req.ForcedConfidence = 1
			req.Input = rest
		}

		if err := handleTurn(ctx, orch, req); err != nil {
			errColor.Fprintf(os.Stderr, "error: %v\n", err)
		}
		// Drop any cancel file so the next turn starts clean.
		signals.Clear(sessionID)
		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

func handleTurn(ctx context.Context, orch *orchestrator.Orchestrator, req orchestrator.Request) error {
	env, err := orch.Route(ctx, req)
	if err != nil {
		return err
	}

	agentColor.Printf("%s> ", displayName(env))
	if env.Streaming {
		for frag := range env.Stream {
			fmt.Print(frag)
		}
		fmt.Println()
	} else {
		fmt.Println(env.Text())
	}

	// Wait for history bookkeeping so the next turn sees this exchange.
	<-env.Persisted()
	return nil
}

func displayName(env *orchestrator.Envelope) string {
	if env.Metadata.AgentName == "" {
		return "switchboard"
	}
	return env.Metadata.AgentID
}

// parseForced recognizes the "@agent message" shape for direct dispatch.
func parseForced(input string) (agent, rest string, ok bool) {
	if !strings.HasPrefix(input, "@") {
		return "", "", false
	}
	fields := strings.SplitN(input[1:], " ", 2)
	if len(fields) != 2 || fields[0] == "" || strings.TrimSpace(fields[1]) == "" {
		return "", "", false
	}
	return fields[0], strings.TrimSpace(fields[1]), true
}

func rosterNames(registry *orchestrator.Registry) string {
	var names []string
	for _, info := range registry.Infos() {
		names = append(names, info.ID)
	}
	return strings.Join(names, ", ")
}
