package main

import (
	"os"

	"github.com/sagernet/sing-edge/log"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"
)

var commandGenerate = &cobra.Command{
	Use:   "generate",
	Short: "Generate things",
}

var uuidInput string

var commandGenerateUUID = &cobra.Command{
	Use:   "uuid",
	Short: "Generate a UUID",
	Run: func(cmd *cobra.Command, args []string) {
		var (
			newUUID uuid.UUID
			err     error
		)
		if uuidInput == "" {
			newUUID, err = uuid.NewV4()
			if err != nil {
				log.Fatal(err)
			}
		} else {
			newUUID = uuid.NewV5(uuid.Nil, uuidInput)
		}
		os.Stdout.WriteString(newUUID.String() + "\n")
	},
	Args: cobra.NoArgs,
}

func init() {
	commandGenerateUUID.Flags().StringVarP(&uuidInput, "input", "i", "", "generate UUID v5 from specified string")
	commandGenerate.AddCommand(commandGenerateUUID)
	mainCommand.AddCommand(commandGenerate)
}
