package main

import cmd "github.com/rohmanhakim/domain-crawler/internal/cli"

func main() {
	cmd.Execute()
}
