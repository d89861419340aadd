package main

import (
	"fmt"
	"os"

	"ybctl/cli/cmd"
	"ybctl/cli/style"
	"ybctl/cluster"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if cluster.IsPrecondition(err) {
			fmt.Fprintln(os.Stderr, style.ErrorBox.Render(err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, style.Unhealthy.Render("error: ")+err.Error())
		}
		os.Exit(1)
	}
}
