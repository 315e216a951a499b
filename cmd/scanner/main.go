// Command scanner reads camera frames (or saved images) until a ticket QR
// code shows up, then submits it to the check-in API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-events/internal/logger"
	"campus-events/internal/scanner"
)

func main() {
	var (
		apiURL   = flag.String("api", envOr("CAMPUS_API_URL", "http://localhost:8084"), "check-in API base URL")
		eventID  = flag.String("event", "", "event being checked in (required)")
		token    = flag.String("token", os.Getenv("CAMPUS_TOKEN"), "organizer bearer token")
		dir      = flag.String("dir", "", "directory of frames to scan")
		image    = flag.String("image", "", "single image to scan")
		code     = flag.String("code", "", "submit this code without scanning")
		interval = flag.Duration("interval", 100*time.Millisecond, "delay between frames")
		timeout  = flag.Duration("timeout", 30*time.Second, "give up scanning after this long")
	)
	flag.Parse()

	log := logger.NewWithWriter(os.Stderr)
	if *eventID == "" {
		fmt.Fprintln(os.Stderr, "scanner: -event is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticketCode := *code
	if ticketCode == "" {
		open, err := frameSource(*dir, *image)
		if err != nil {
			log.Fatal("SCANNER", err.Error())
		}
		ticketCode, err = scanOnce(ctx, open, *interval, *timeout, log)
		if err != nil {
			log.Fatal("SCANNER", err.Error())
		}
	}
	log.Info("SCANNER", "Read code "+ticketCode)

	client := NewClient(*apiURL, *token)
	result, err := client.CheckIn(ctx, *eventID, ticketCode)
	if err != nil {
		log.Fatal("CHECKIN", err.Error())
	}

	fmt.Println(result.Message)
	if !result.OK {
		os.Exit(1)
	}
}

func frameSource(dir, image string) (func(context.Context) (scanner.FrameSource, error), error) {
	switch {
	case dir != "":
		return func(context.Context) (scanner.FrameSource, error) { return scanner.NewDirSource(dir) }, nil
	case image != "":
		return func(context.Context) (scanner.FrameSource, error) { return scanner.NewFileSource(image), nil }, nil
	default:
		return nil, fmt.Errorf("one of -dir, -image or -code is required")
	}
}

func scanOnce(ctx context.Context, open func(context.Context) (scanner.FrameSource, error), interval, timeout time.Duration, log *logger.Logger) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sc := scanner.New(open, log)
	sc.FrameInterval = interval
	sess := sc.Scan(ctx)
	defer sess.Stop()

	code, ok := <-sess.Result()
	if ok {
		return code, nil
	}
	<-sess.Done()
	if err := sess.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("no ticket code found")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
