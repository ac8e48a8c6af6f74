package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfauto/mfauto/server"
	"github.com/oklog/run"
)

// goreleaser will replace version with Git version. You can also pass version
// into the go build:
//
//	go build -ldflags="-X main.version=1.2.3"
var version = "Development"

func main() {
	// global options
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flagVersion := flags.Bool("version", false, "Print app version")
	flags.Usage = func() {
		fmt.Println("usage: mfauto [OPTION]... COMMAND [OPTION]...")
		fmt.Println("Global options:")
		flags.PrintDefaults()
		fmt.Println()
		fmt.Println("Available commands:")
		fmt.Println("  - check (verify the Moldflow tools work)")
		fmt.Println("  - modify (change process parameters or material of a study)")
		fmt.Println("  - run (analyse a study)")
		fmt.Println("  - export (export mesh, log and results of a study)")
		fmt.Println("  - pipeline (execute pipeline files)")
		fmt.Println("  - serve (start a worker node)")
		fmt.Println("  - submit (send pipeline files to a worker node)")
		fmt.Println("  - jobs (list jobs of the local catalogue)")
		fmt.Println("  - version")
	}

	flags.Parse(os.Args[1:])

	if *flagVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// extract sub command and its arguments
	args := flags.Args()

	if len(args) < 1 {
		flags.Usage()
		os.Exit(1)
	}

	// cancel the running tool on ctrl-c
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error

	switch args[0] {
	case "check":
		err = runCheck(ctx, args[1:])
	case "modify":
		err = runModify(ctx, args[1:])
	case "run":
		err = runRun(ctx, args[1:])
	case "export":
		err = runExport(ctx, args[1:])
	case "pipeline":
		err = runPipeline(ctx, args[1:])
	case "serve":
		stop()
		err = runServer(args[1:])
	case "submit":
		err = runSubmit(args[1:])
	case "jobs":
		err = runJobs(args[1:])
	case "version":
		fmt.Println(version)
	default:
		log.Fatal("Unknown command; options: check, modify, run, export, pipeline, serve, submit, jobs, version")
	}

	if err != nil {
		log.Println("mfauto error: ", err)
		os.Exit(1)
	}
}

func runServer(args []string) error {
	options, err := server.Args(args, nil)
	if err != nil {
		return err
	}

	log.Printf("mfauto %v\n", version)

	var g run.Group

	s, _, err := server.NewServer(options)
	if err != nil {
		return fmt.Errorf("Error starting server: %v", err)
	}

	g.Add(s.Run, s.Stop)

	g.Add(run.SignalHandler(context.Background(),
		syscall.SIGINT, syscall.SIGTERM))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)

	// add check to make sure server started
	chStartCheck := make(chan struct{})
	g.Add(func() error {
		err := s.WaitStart(ctx)
		if err != nil {
			return errors.New("Timeout waiting for mfauto to start")
		}
		log.Println("mfauto started")
		<-chStartCheck
		return nil
	}, func(err error) {
		cancel()
		close(chStartCheck)
	})

	err = g.Run()

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		log.Println("mfauto stopped: ", sigErr)
		return nil
	}

	return err
}
