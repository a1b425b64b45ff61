package main

import "github.com/oshokin/smart-dial/cmd/dial-pair/cmd"

func main() {
	cmd.Execute()
}
