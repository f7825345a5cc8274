package main

import (
	"context"
	"resultfetcher/cmd/resultfetcher/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
