package main

import "github.com/user/secscan/cmd"

func main() {
	cmd.Execute()
}
