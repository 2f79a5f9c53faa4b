package main

import "go.pilab.hu/ghlink/cmd/ghlink/cmd"

func main() {
	cmd.Execute()
}
