package main

import "github.com/yourflix/enrich/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
