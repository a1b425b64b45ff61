package main

import "github.com/oshokin/smart-dial/cmd/dial-packager/cmd"

func main() {
	cmd.Execute()
}
