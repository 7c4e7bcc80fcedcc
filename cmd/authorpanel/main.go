package main

import "github.com/Erfan-Ghasemi-Yekta/atom-author-panel/internal/cli"

func main() {
	cli.Execute()
}
