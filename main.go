package main

import "github.com/KaramelBytes/stressdash/cmd"

func main() {
	cmd.Execute()
}
