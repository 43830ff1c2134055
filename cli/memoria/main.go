package main

import (
	"os"

	memoriacmder "github.com/papercomputeco/memoria/cmd/memoria"
)

func main() {
	cmd := memoriacmder.NewMemoriaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
