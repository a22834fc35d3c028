package main

import "github.com/Aintivirus-AI/aintivirus-privacy-extension-sub002/internal/cli"

func main() {
	cli.Execute()
}
