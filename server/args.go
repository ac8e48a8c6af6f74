package server

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/mfauto/mfauto/system"
)

const defaultNatsServer = "nats://127.0.0.1:4222"

// Args parses the command line options of the serve command. Most
// options can also be set with MFAUTO_* environment variables, command
// line options take precedence.
func Args(args []string, flags *flag.FlagSet) (Options, error) {
	// =============================================
	// Command line options
	// =============================================
	if flags == nil {
		flags = flag.NewFlagSet("serve", flag.ExitOnError)
	}

	flagDebugLifecycle := flags.Bool("debugLifecycle", false, "debug program lifecycle")
	flagNatsServer := flags.String("natsServer", defaultNatsServer, "NATS Server")
	flagNatsDisableServer := flags.Bool("natsDisableServer", false, "disable NATS server (if you want to run NATS separately)")
	flagStore := flags.String("store", "", "store file, default <data dir>/mfauto.sqlite")
	flagAuthToken := flags.String("token", "", "auth token")
	flagMoldflow := flags.String("moldflow", "", "Moldflow installation directory")
	flagTCodes := flags.String("tcodes", "", "TCode database (YAML)")
	flagMaterials := flags.String("materials", "", "material database (YAML)")
	flagWatch := flags.String("watch", "", "submit pipeline files written to this directory")
	flagQueue := flags.Int("queue", 16, "number of jobs that can wait")
	flagMetricsPeriod := flags.Duration("metricsPeriod", 30*time.Second, "period of host metrics, 0 disables them")
	flagHost := flags.String("host", "", "worker name, default hostname")
	flagSyslog := flags.Bool("syslog", false, "log to syslog instead of stdout")

	if err := flags.Parse(args); err != nil {
		return Options{}, err
	}

	// =============================================
	// General Setup
	// =============================================

	dataDir := os.Getenv("MFAUTO_DATA")
	if dataDir == "" {
		dataDir = "./"
	}

	moldflowPath := envDefault(*flagMoldflow, "MFAUTO_MOLDFLOW")
	tcodes := envDefault(*flagTCodes, "MFAUTO_TCODES")
	materials := envDefault(*flagMaterials, "MFAUTO_MATERIALS")
	authToken := envDefault(*flagAuthToken, "MFAUTO_AUTH_TOKEN")

	// =============================================
	// NATS stuff
	// =============================================

	natsPort, err := envInt("MFAUTO_NATS_PORT", 4222)
	if err != nil {
		return Options{}, err
	}

	natsHTTPPort, err := envInt("MFAUTO_NATS_HTTP_PORT", 8222)
	if err != nil {
		return Options{}, err
	}

	natsServer := *flagNatsServer
	// only consider env if command line option is something different
	// that default
	if natsServer == defaultNatsServer {
		natsServerE := os.Getenv("MFAUTO_NATS_SERVER")
		if natsServerE != "" {
			natsServer = natsServerE
		}
	}

	natsTLSTimeout := 0.5
	if s := os.Getenv("MFAUTO_NATS_TLS_TIMEOUT"); s != "" {
		natsTLSTimeout, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return Options{}, fmt.Errorf("Error parsing MFAUTO_NATS_TLS_TIMEOUT: %v", err)
		}
	}

	if *flagSyslog {
		err := system.EnableSyslog("mfauto")
		if err != nil {
			log.Println("Error enabling syslog:", err)
		}
	}

	o := Options{
		DataDir:           dataDir,
		StoreFile:         *flagStore,
		Moldflow:          moldflowPath,
		TCodes:            tcodes,
		Materials:         materials,
		WatchDir:          *flagWatch,
		QueueSize:         *flagQueue,
		MetricsPeriod:     *flagMetricsPeriod,
		Host:              *flagHost,
		DebugLifecycle:    *flagDebugLifecycle,
		NatsServer:        natsServer,
		NatsDisableServer: *flagNatsDisableServer,
		NatsPort:          natsPort,
		NatsHTTPPort:      natsHTTPPort,
		NatsTLSCert:       os.Getenv("MFAUTO_NATS_TLS_CERT"),
		NatsTLSKey:        os.Getenv("MFAUTO_NATS_TLS_KEY"),
		NatsTLSTimeout:    natsTLSTimeout,
		AuthToken:         authToken,
	}

	return o, nil
}

// envDefault returns v, or the environment variable env if v is empty
func envDefault(v, env string) string {
	if v != "" {
		return v
	}
	return os.Getenv(env)
}

func envInt(env string, def int) (int, error) {
	s := os.Getenv(env)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("Error parsing %v: %v", env, err)
	}
	return n, nil
}
