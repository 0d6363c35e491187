package main

import "github.com/vantagehq/vantage/cmd"

func main() {
	cmd.Execute()
}
