package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/a-h/chatrelay/client"
)

type CheckCommand struct {
	ServerURL string `help:"The URL of the chat relay server." env:"CHAT_RELAY_URL" default:"http://localhost:9040"`
	Pretty    bool   `help:"Pretty print the JSON output." default:"true"`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c CheckCommand) Run(ctx context.Context) (err error) {
	crc := client.New(c.ServerURL)
	resp, err := crc.CheckGet(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if c.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(resp)
}
