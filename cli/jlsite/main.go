package main

import (
	"os"

	jlsitecmder "github.com/jlsoftware/jlsite/cmd/jlsite"
)

func main() {
	cmd := jlsitecmder.NewJlsiteCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
