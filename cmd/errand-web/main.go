// Command errand-web serves the browser chat front-end. Transcripts live in
// memory by default; pass -mongo-uri to persist them in MongoDB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	errand "github.com/jwhitelaw/errand"
	"github.com/jwhitelaw/errand/pkg/models"
	"github.com/jwhitelaw/errand/pkg/tools"
	"github.com/jwhitelaw/errand/pkg/transcript"
	"github.com/jwhitelaw/errand/pkg/web"
)

var (
	flagAddr     = flag.String("addr", ":5001", "HTTP listen address")
	flagProvider = flag.String("provider", "gemini", "LLM provider: openai|gemini|anthropic|ollama")
	flagModel    = flag.String("model", "gemini-1.5-flash-latest", "Model ID for the selected provider")
	flagMongoURI = flag.String("mongo-uri", "", "MongoDB URI for persistent transcripts (empty = in-memory)")
	flagMongoDB  = flag.String("mongo-db", "errand", "MongoDB database name")
)

func main() {
	flag.Parse()
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model, err := models.NewProvider(ctx, strings.ToLower(*flagProvider), *flagModel)
	if err != nil {
		fail(err)
	}

	readEmail, sendEmail := tools.NewGmailTools()
	agent, err := errand.New(errand.Options{
		Model: model,
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

	var store transcript.Store
	if *flagMongoURI != "" {
		mongoStore, err := transcript.NewMongoStore(ctx, *flagMongoURI, *flagMongoDB, "transcripts")
		if err != nil {
			fail(fmt.Errorf("connect mongo: %w", err))
		}
		defer mongoStore.Close()
		store = mongoStore
		log.Info().Str("database", *flagMongoDB).Msg("using mongo transcript store")
	} else {
		store = transcript.NewMemoryStore()
	}

	server := &http.Server{
		Addr:              *flagAddr,
		Handler:           web.NewServer(agent, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", *flagAddr).Str("provider", *flagProvider).Str("model", *flagModel).Msg("listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "errand-web:", err)
	os.Exit(1)
}
