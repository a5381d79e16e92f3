// Command mfpipe-echo is a two-sided demo exercising mfpipe end to end: one
// side Creates a pipe and echoes back every Buffer object it receives, the
// other Opens a pipe, sends a counter payload on an interval, and logs the
// echoed reply.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vellum-io/mfpipe"
	"github.com/vellum-io/mfpipe/internal/logger"
	"github.com/vellum-io/mfpipe/internal/objects"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli", "mode", cfg.mode)

	interval, err := time.ParseDuration(cfg.interval)
	if err != nil {
		log.Error("invalid -interval", "error", err)
		os.Exit(2)
	}

	var opts []mfpipe.Option
	if cfg.mtu > 0 {
		opts = append(opts, mfpipe.WithMTU(cfg.mtu))
	}

	var pipe *mfpipe.Pipe
	switch cfg.mode {
	case "create":
		pipe, err = mfpipe.Create(cfg.addr, opts...)
	case "open":
		pipe, err = mfpipe.Open(cfg.addr, opts...)
	}
	if err != nil {
		log.Error("failed to open pipe", "error", err)
		os.Exit(1)
	}
	log.Info("pipe ready", "addr", cfg.addr, "channel", cfg.channel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	if cfg.mode == "create" {
		go runEcho(ctx, pipe, cfg.channel, log, done)
	} else {
		go runSender(ctx, pipe, cfg.channel, interval, log, done)
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		<-done
		if err := pipe.Close(); err != nil {
			log.Error("pipe close error", "error", err)
		}
		close(closed)
	}()

	select {
	case <-closed:
		log.Info("pipe stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}

// runEcho reads Buffer objects off channel and writes each one back
// unchanged on channel+"-reply" until ctx is cancelled.
func runEcho(ctx context.Context, pipe *mfpipe.Pipe, channel string, log *slog.Logger, done chan<- struct{}) {
	defer close(done)
	reply := channel + "-reply"
	for ctx.Err() == nil {
		obj, err := pipe.Get(channel, 500*time.Millisecond)
		if err != nil {
			continue
		}
		buf, ok := obj.(*objects.Buffer)
		if !ok {
			continue
		}
		log.Info("echoing message", "bytes", len(buf.Data))
		if err := pipe.Put(reply, buf, time.Second); err != nil {
			log.Warn("echo put failed", "error", err)
		}
	}
}

// runSender writes an incrementing counter payload to channel every
// interval and logs whatever arrives on channel+"-reply".
func runSender(ctx context.Context, pipe *mfpipe.Pipe, channel string, interval time.Duration, log *slog.Logger, done chan<- struct{}) {
	defer close(done)
	reply := channel + "-reply"

	go func() {
		for ctx.Err() == nil {
			obj, err := pipe.Get(reply, 500*time.Millisecond)
			if err != nil {
				continue
			}
			if buf, ok := obj.(*objects.Buffer); ok {
				log.Info("reply received", "bytes", len(buf.Data))
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var n uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n++
			payload := []byte(fmt.Sprintf("ping-%d", n))
			buf := &objects.Buffer{Flags: objects.FlagBuffer, Data: payload}
			if err := pipe.Put(channel, buf, time.Second); err != nil {
				log.Warn("send failed", "error", err)
			}
		}
	}
}
