package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rollcall:", err)
		os.Exit(GetExitCode(err))
	}
}
