package main

import "github.com/sagernet/sing-edge/log"

func main() {
	if err := mainCommand.Execute(); err != nil {
		log.Fatal(err)
	}
}
