package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the table server"`
	Simulate SimulateCmd      `cmd:"" help:"Play random hands on local tables"`
	Tables   TablesCmd        `cmd:"" help:"Manage table records in a store file"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pokerface"),
		kong.Description("Texas Hold'em tables over HTTP and websockets"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.Bind(&cli.Tables),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
