package main

import "github.com/andresmejia3/facekit/cmd"

func main() {
	cmd.Execute()
}
