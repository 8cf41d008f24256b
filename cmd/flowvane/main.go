package main

import (
	"log/slog"

	"github.com/flowvane/flowvane/pkg/flowvane"
)

func main() {

	//you may do your own logger setup here or use this default one with slog
	flowvane.SetupLogger()

	if err := flowvane.Start(nil, flowvane.Options{}); err != nil {
		slog.Error("Engine exited with error", "error", err)
	}
}
