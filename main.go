package main

import "github.com/flvkit/flvkit/cmd"

func main() {
	cmd.Execute()
}
