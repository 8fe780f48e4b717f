package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iov-one/escrowd/client"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cli := &CLI{
		cfg: cfg,
		connect: func(remote string) *client.Client {
			return client.NewHTTPClient(remote)
		},
	}
	if err := cli.Command().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
