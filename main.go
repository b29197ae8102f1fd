package main

import (
	"github.com/iotaledger/consensus-executor/components/app"
)

func main() {
	app.App().Run()
}
