package main

import (
	"github.com/tejjnayak/rewind/internal/cmd"
	"github.com/tejjnayak/rewind/internal/log"
)

func main() {
	defer log.RecoverPanic("main", nil)
	cmd.Execute()
}
