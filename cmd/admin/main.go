package main

import "github.com/sreejagatab/medtranslate-ai-sub006/internal/cli"

func main() {
	cli.Execute()
}
