// Command errand is the terminal chat client. It wires the full tool set
// (search, browsing, Gmail) to the chosen model provider and loops on stdin.
//
// Examples:
//
//	export GOOGLE_API_KEY=...   # Gemini + Custom Search
//	export GOOGLE_CSE_ID=...
//	go run ./cmd/errand
//
//	export OPENAI_API_KEY=...
//	go run ./cmd/errand -provider openai -model gpt-4o-mini
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	errand "github.com/jwhitelaw/errand"
	"github.com/jwhitelaw/errand/pkg/chat"
	"github.com/jwhitelaw/errand/pkg/models"
	"github.com/jwhitelaw/errand/pkg/tools"
)

var (
	flagProvider = flag.String("provider", "gemini", "LLM provider: openai|gemini|anthropic|ollama")
	flagModel    = flag.String("model", "gemini-1.5-flash-latest", "Model ID for the selected provider")
	flagSystem   = flag.String("system", "", "Override the default system prompt")
	flagSession  = flag.String("session", "cli", "Session ID attached to tool invocations")
	flagTimeout  = flag.Duration("timeout", 2*time.Minute, "Per-turn timeout")
	flagVerbose  = flag.Bool("verbose", false, "Log tool activity and show which tools each turn used")
)

func main() {
	flag.Parse()

	level := zerolog.WarnLevel
	if *flagVerbose {
		level = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx := context.Background()
	model, err := models.NewProvider(ctx, strings.ToLower(*flagProvider), *flagModel)
	if err != nil {
		fail(err)
	}

	readEmail, sendEmail := tools.NewGmailTools()
	agent, err := errand.New(errand.Options{
		Model:        model,
		SystemPrompt: *flagSystem,
		Tools: []errand.Tool{
			tools.NewGoogleSearchTool(),
			tools.NewBrowseTool(),
			readEmail,
			sendEmail,
		},
	})
	if err != nil {
		fail(err)
	}

	fmt.Printf("errand (%s/%s) — type 'exit' or 'quit' to leave\n", *flagProvider, *flagModel)

	var history []chat.Message
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			break
		}

		history = append(history, chat.User(input))
		turnCtx, cancel := context.WithTimeout(ctx, *flagTimeout)
		result, err := agent.Run(turnCtx, *flagSession, history)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			history = history[:len(history)-1]
			continue
		}

		history = result.Messages
		fmt.Printf("Agent: %s\n", result.FinalText)
		if *flagVerbose {
			if names := result.ToolNames(); len(names) > 0 {
				fmt.Printf("  [tools: %s]\n", strings.Join(names, ", "))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "errand:", err)
	os.Exit(1)
}
