package main

import (
	"fmt"
	"os"
)

func main() {
	app := createCliApp()

	// cli.Exit 的错误由 urfave/cli 自行退出，这里只处理其他错误
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}
