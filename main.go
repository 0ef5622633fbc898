// The main package for the hot100 executable.
package main

import (
	"github.com/JakeFAU/hot100-crawler/cmd"
)

func main() {
	cmd.Execute()
}
