package main

import (
	"context"
	"fmt"

	"github.com/a-h/chatrelay"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(chatrelay.Version)
	return nil
}
