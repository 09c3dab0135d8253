// Command bjverify lets a player check a settled round offline: it rebuilds
// the shoe from the revealed seeds and verifies the round's audit chain.
package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Shoe    ShoeCmd          `cmd:"" help:"Rebuild and verify a round's shoe from its revealed seeds"`
	Audit   AuditCmd         `cmd:"" help:"Verify the hash chain of a round's audit trail"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("bjverify"),
		kong.Description("Verify provably fair blackjack rounds"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
