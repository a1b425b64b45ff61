package main

import "github.com/oshokin/smart-dial/cmd/dial-ctl/cmd"

func main() {
	cmd.Execute()
}
