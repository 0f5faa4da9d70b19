package main

import "github.com/chrisdamba/urbanwatch/cmd"

func main() {
	cmd.Execute()
}
