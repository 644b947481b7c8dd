// opsctl runs payment operations outside any HTTP request: releasing stuck
// holds, capturing, reconciling bookings with the processor and settling classes.
package main

import (
	"fmt"
	"os"

	"cocinarte/internal/app"
	"cocinarte/internal/config"
	"cocinarte/internal/logger"
)

var Version = "dev"

func main() {
	connect := func() (Operator, func() error, error) {
		cfg := config.Load()
		cfg.NATS.ClientID = "cocinarte-opsctl"
		logger.Init(cfg.LogLevel, "text")

		a, err := app.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		return &appOperator{app: a}, a.Close, nil
	}

	if err := newRootCmd(connect).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
