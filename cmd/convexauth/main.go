// Command convexauth runs a convexauth web server.
//
//	convexauth [-watch] [-callback URL]
//
// With -watch, it follows the auth state of a better-auth session instead,
// exchanging the one-time token in -callback if given.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fartinmartin/convexauth/config"
	"github.com/fartinmartin/convexauth/logger"
	"github.com/fartinmartin/convexauth/server"
)

func main() {
	watch := flag.Bool("watch", false, "follow the auth state of a better-auth session instead of serving")
	callback := flag.String("callback", "", "URL carrying a one-time token to exchange when watching")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if !*watch {
		s, err := server.New(cfg)
		if err != nil {
			log.Fatalf("configure server: %v", err)
		}

		if err := s.Guide(); err != nil {
			s.Logger().Fatal(err.Error(), nil)
		}

		return
	}

	l := logger.New(
		logger.WithEnv(cfg.Environment.String()),
		logger.WithLevel(cfg.LogLevel),
		logger.WithSentryDSN(cfg.SentryDSN),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Watch(ctx, cfg, l, *callback); err != nil {
		l.Fatal(err.Error(), nil)
	}
}
