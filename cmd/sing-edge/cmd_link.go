package main

import (
	"os"

	"github.com/sagernet/sing-edge/common/link"
	"github.com/sagernet/sing-edge/log"
	E "github.com/sagernet/sing/common/exceptions"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"
)

var linkHTML bool

var commandLink = &cobra.Command{
	Use:   "link",
	Short: "Print share links for the configured host",
	Run: func(cmd *cobra.Command, args []string) {
		err := printLinks()
		if err != nil {
			log.Fatal(err)
		}
	},
	Args: cobra.NoArgs,
}

func init() {
	commandLink.Flags().BoolVar(&linkHTML, "html", false, "print the share page instead of plain links")
	mainCommand.AddCommand(commandLink)
}

func printLinks() error {
	options, err := readOptions()
	if err != nil {
		return err
	}
	inbound := options.Inbound
	if inbound.Host == "" {
		return E.New("missing host")
	}
	userID, err := uuid.FromString(inbound.UUID)
	if err != nil {
		return E.Cause(err, "parse uuid")
	}
	links := link.All(link.Options{
		UUID: userID,
		Host: inbound.Host,
	}, inbound.Protocols)
	if linkHTML {
		return link.WritePage(os.Stdout, links)
	}
	for _, shareLink := range links {
		os.Stdout.WriteString(shareLink.String() + "\n")
	}
	return nil
}
