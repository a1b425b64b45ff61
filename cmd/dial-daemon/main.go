package main

import "github.com/oshokin/smart-dial/cmd/dial-daemon/cmd"

func main() {
	cmd.Execute()
}
