// Command retune measures the tuning reference of recordings and writes
// copies re-tuned to A4 = 440 Hz.
//
// Usage:
//
//	retune analyze take1.wav take2.mp3
//	retune correct take1.wav take1-440.opus
//	retune correct --cents -17.5 --format wav take1.wav take1-440.wav
//	retune --config retune.yaml --metrics-addr :9464 correct in.wav out.opus
//
// Without --cents, correct analyzes the input first and refuses to write
// anything when the result is not trustworthy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
