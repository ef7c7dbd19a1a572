package main

import (
	"github.com/jtbus/sv2ipxact/cmd"
)

func main() {
	cmd.Execute()
}
