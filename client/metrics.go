package client

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/mfauto/mfauto/data"
	"github.com/mfauto/mfauto/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// MetricsOptions configure a MetricsClient
type MetricsOptions struct {
	// Period between samples, defaults to 30s
	Period time.Duration
	// Dir is the directory whose disk usage is reported, defaults to the
	// working directory
	Dir string
	// Busy reports if the host executes a job
	Busy func() bool
}

// MetricsClient publishes the load of the host periodically
type MetricsClient struct {
	nc       *natsgo.Conn
	options  MetricsOptions
	host     string
	stop     chan struct{}
	stopOnce sync.Once
	log      *log.Logger
}

// NewMetricsClient creates a metrics client
func NewMetricsClient(nc *natsgo.Conn, o MetricsOptions) *MetricsClient {
	if o.Period <= 0 {
		o.Period = 30 * time.Second
	}

	if o.Dir == "" {
		o.Dir = "."
	}

	m := &MetricsClient{
		nc:      nc,
		options: o,
		stop:    make(chan struct{}),
		log:     log.New(log.Writer(), "Metrics: ", log.Flags()|log.Lmsgprefix),
	}

	hostStat, err := host.Info()
	if err != nil {
		m.log.Println("error getting host info: ", err)
		m.host, _ = os.Hostname()
	} else {
		m.host = hostStat.Hostname
		m.log.Printf("%v, %v %v, %v cores", hostStat.Hostname, hostStat.Platform,
			hostStat.PlatformVersion, numCPU())
	}

	return m
}

func numCPU() int {
	n, err := cpu.Counts(true)
	if err != nil {
		return 0
	}
	return n
}

// Sample collects the load of the host. Values that can not be read are
// left at zero.
func (m *MetricsClient) Sample() data.HostMetrics {
	ret := data.HostMetrics{Host: m.host, Time: time.Now()}

	if m.options.Busy != nil {
		ret.Busy = m.options.Busy()
	}

	perc, err := cpu.Percent(0, false)
	if err != nil {
		m.log.Println("error: ", err)
	} else if len(perc) > 0 {
		ret.CPUPercent = perc[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		m.log.Println("error: ", err)
	} else {
		ret.MemPercent = vm.UsedPercent
	}

	u, err := disk.Usage(m.options.Dir)
	if err != nil {
		m.log.Println("Error getting disk usage: ", err)
	} else {
		ret.DiskPercent = u.UsedPercent
	}

	avg, err := load.Avg()
	if err == nil {
		ret.Load1 = avg.Load1
	}

	return ret
}

// Run publishes samples until stopped
func (m *MetricsClient) Run() error {
	ticker := time.NewTicker(m.options.Period)
	defer ticker.Stop()

	publish := func() {
		if err := nats.PublishMetrics(m.nc, m.Sample()); err != nil {
			m.log.Println("error publishing metrics: ", err)
		}
	}

	publish()

	for {
		select {
		case <-m.stop:
			return nil
		case <-ticker.C:
			publish()
		}
	}
}

// Stop sends a signal to the Run function to exit
func (m *MetricsClient) Stop(_ error) {
	m.stopOnce.Do(func() { close(m.stop) })
}
