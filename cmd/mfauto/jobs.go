package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/nats"
	"github.com/mfauto/mfauto/pipeline"
	"github.com/mfauto/mfauto/store"
	"github.com/mfauto/mfauto/studymod"
)

const defaultNatsServer = "nats://localhost:4222"

func dataDir() string {
	d := os.Getenv("MFAUTO_DATA")
	if d == "" {
		d = "./"
	}
	return d
}

func runPipeline(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("pipeline", flag.ExitOnError)
	flagMoldflow := flags.String("moldflow", os.Getenv("MFAUTO_MOLDFLOW"), "default Moldflow installation directory (env MFAUTO_MOLDFLOW)")
	flagTCodes := flags.String("tcodes", os.Getenv("MFAUTO_TCODES"), "TCode database (env MFAUTO_TCODES)")
	flagMaterials := flags.String("materials", os.Getenv("MFAUTO_MATERIALS"), "material database (env MFAUTO_MATERIALS)")
	flagValidate := flags.Bool("validate", false, "only validate the pipeline files")
	flagNoStore := flags.Bool("noStore", false, "do not record jobs in the catalogue")
	flags.Usage = func() {
		fmt.Println("usage: mfauto pipeline [OPTION]... FILE...")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() < 1 {
		flags.Usage()
		return fmt.Errorf("pipeline file required")
	}

	var specs []*pipeline.Spec
	for _, path := range flags.Args() {
		s, err := pipeline.Load(path)
		if err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}
		specs = append(specs, s)
	}

	if *flagValidate {
		fmt.Printf("%v pipeline(s) valid\n", len(specs))
		return nil
	}

	db, err := studymod.LoadDatabase(*flagTCodes, *flagMaterials)
	if err != nil {
		return err
	}

	env := pipeline.Env{
		Moldflow: *flagMoldflow,
		Database: db,
	}

	if !*flagNoStore {
		st, err := store.NewSqliteDb(dataDir(), "")
		if err != nil {
			return err
		}
		defer st.Close()
		env.Store = st
	}

	for i, s := range specs {
		job, err := pipeline.Execute(ctx, s, env)
		if err != nil {
			return fmt.Errorf("%v: %w", flags.Arg(i), err)
		}
		fmt.Printf("job %v done in %v\n", job.ID, job.Duration().Round(time.Millisecond))
	}

	return nil
}

func runSubmit(args []string) error {
	flags := flag.NewFlagSet("submit", flag.ExitOnError)
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagAuthToken := flags.String("token", os.Getenv("MFAUTO_AUTH_TOKEN"), "auth token (env MFAUTO_AUTH_TOKEN)")
	flagWait := flags.Bool("wait", false, "wait for the jobs to finish and print their status")
	flagTimeout := flags.Duration("timeout", 5*time.Second, "timeout for a worker to accept a job")
	flags.Usage = func() {
		fmt.Println("usage: mfauto submit [OPTION]... FILE...")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() < 1 {
		flags.Usage()
		return fmt.Errorf("pipeline file required")
	}

	// only consider env if command line option is something different
	// that default
	natsServer := *flagNatsServer
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("MFAUTO_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	nc, err := nats.Connect(nats.ConnectOptions{
		Server:    natsServer,
		AuthToken: *flagAuthToken,
		Name:      "mfauto submit",
	})
	if err != nil {
		return fmt.Errorf("Error connecting to NATS server: %v", err)
	}
	defer nc.Close()

	pending := make(map[string]bool)
	final := make(chan data.JobStatus, 16)

	if *flagWait {
		sub, err := nats.ListenForStatus(nc, "", func(s data.JobStatus) {
			if s.Message != "" {
				fmt.Printf("%v: %v\n", s.ID, s.Message)
			}
			if s.State.Final() {
				final <- s
			}
		})
		if err != nil {
			return err
		}
		defer sub.Unsubscribe()
	}

	for _, path := range flags.Args() {
		buf, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		// catch mistakes before a worker does
		s, err := pipeline.Parse(buf)
		if err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}

		resp, err := nats.SubmitJob(nc, buf, *flagTimeout)
		if err != nil {
			return fmt.Errorf("%v: %w", path, err)
		}

		fmt.Printf("%v: job %v on %v\n", path, resp.ID, resp.Host)
		pending[resp.ID] = true
	}

	if !*flagWait {
		return nil
	}

	failed := 0
	for len(pending) > 0 {
		s := <-final
		if !pending[s.ID] {
			continue
		}
		delete(pending, s.ID)
		if s.State == data.JobStateFailed {
			failed++
			fmt.Printf("%v: FAILED: %v\n", s.ID, s.Error)
		} else {
			fmt.Printf("%v: done\n", s.ID)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%v job(s) failed", failed)
	}

	return nil
}

func runJobs(args []string) error {
	flags := flag.NewFlagSet("jobs", flag.ExitOnError)
	flagLimit := flags.Int("limit", 20, "number of jobs to list, 0 for all")
	flagID := flags.String("id", "", "show the artifacts of a job")

	if err := flags.Parse(args); err != nil {
		return err
	}

	st, err := store.NewSqliteDb(dataDir(), "")
	if err != nil {
		return err
	}
	defer st.Close()

	if *flagID != "" {
		job, err := st.Job(*flagID)
		if err != nil {
			return err
		}
		fmt.Printf("%v %v %v %v\n", job.ID, job.Type, job.State, job.Study)
		if job.Error != "" {
			fmt.Println("error:", job.Error)
		}
		artifacts, err := st.Artifacts(job.ID)
		if err != nil {
			return err
		}
		printArtifacts(artifacts)
		return nil
	}

	jobs, err := st.Jobs(*flagLimit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tSTUDY\tHOST\tCREATED\tDURATION")
	for _, j := range jobs {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n", j.ID, j.State, j.Study, j.Host,
			humanize.Time(j.Created), j.Duration().Round(time.Second))
	}
	return w.Flush()
}

func printArtifacts(artifacts []data.Artifact) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, a := range artifacts {
		fmt.Fprintf(w, "%v\t%v\t%v\n", a.Kind, humanize.Bytes(uint64(a.Size)), a.Path)
	}
	w.Flush()
}
