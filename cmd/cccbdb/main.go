package main

import (
	"context"

	"cccbdb-harvester/cmd/cccbdb/commands"
	"cccbdb-harvester/internal/components/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	commands.ExecuteContext(context.Background())
}
