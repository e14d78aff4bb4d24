package main

import "github.com/KaramelBytes/sheetdoctor-cli/cmd"

func main() {
	cmd.Execute()
}
