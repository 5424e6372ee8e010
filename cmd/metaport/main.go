package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/broady/metaport/cmd/metaport/internal/dump"
)

type CLI struct {
	Version VersionCmd `cmd:"" help:"Print version information."`
	Dump    dump.Cmd   `cmd:"" help:"Import Go package types into a metadata container and print it as JSON."`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(Version())
	return nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("metaport"),
		kong.Description("Import type metadata from Go packages into a canonical reference container."),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
