package main

import "github.com/oshokin/smart-dial/cmd/dial-updater/cmd"

func main() {
	cmd.Execute()
}
