package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"

	chatpost "github.com/a-h/chatrelay/handlers/chat/post"
	checkget "github.com/a-h/chatrelay/handlers/check/get"
	"github.com/a-h/chatrelay/persona"
	"github.com/a-h/chatrelay/relay"
	"github.com/rs/cors"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

type ServeCommand struct {
	GoogleAPIKey    string `help:"The Google AI API key." env:"GOOGLE_API_KEY" default:""`
	ChatModel       string `help:"The model to chat with." env:"CHAT_MODEL" default:"gemini-1.5-flash"`
	MaxOutputTokens int    `help:"The maximum number of tokens to generate per reply." env:"MAX_OUTPUT_TOKENS" default:"1000"`
	PersonaFile     string `help:"The persona configuration file." env:"PERSONA_FILE" default:"persona.yaml"`
	ListenAddr      string `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9040"`
	TLSCertFile     string `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile      string `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	LogLevel        string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	instruction, ok := persona.Load(log, c.PersonaFile).Instruction()
	if ok {
		log.Info("using system instruction", slog.String("instruction", instruction))
	} else {
		log.Info("no system instruction configured")
	}

	// The relay carries a nil model when no key is configured, and fails
	// each request fast with a configuration error instead of refusing to
	// start. That keeps /check useful for diagnosing a bad deployment.
	var llm llms.Model
	if c.GoogleAPIKey == "" {
		log.Warn("GOOGLE_API_KEY is not configured")
	} else {
		log.Info("creating LLM client", slog.String("model", c.ChatModel))
		g, err := googleai.New(ctx,
			googleai.WithAPIKey(c.GoogleAPIKey),
			googleai.WithDefaultModel(c.ChatModel))
		if err != nil {
			return fmt.Errorf("failed to create LLM: %w", err)
		}
		llm = g
	}
	rly := relay.New(llm, c.ChatModel, c.MaxOutputTokens)

	mux := http.NewServeMux()
	mux.Handle("POST /chat", chatpost.New(log, rly, instruction))
	mux.Handle("GET /check", checkget.New(log, rly))
	withCORSMux := cors.AllowAll().Handler(mux)

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:    c.ListenAddr,
		Handler: withCORSMux,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}
