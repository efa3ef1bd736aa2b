package main

import "reward-advisor/cmd"

func main() {
	cmd.Execute()
}
