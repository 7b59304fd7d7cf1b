package main

import "github.com/leo-editor/leo/cmd"

func main() {
	cmd.Execute()
}
