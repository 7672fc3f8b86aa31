// Command resbench exercises a shared resources container under load and
// reports per-role throughput. It doubles as a liveness check: writers and
// two fetcher groups requesting overlapping type sets in opposite orders
// must all run to completion within the configured duration.
package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/resources"
)

// Counter is the contended write target.
type Counter struct {
	N uint64
}

// Gauge is a second write target so fetch batches have two lock orders to
// disagree about.
type Gauge struct {
	V uint64
}

// Labels is read-only under load; any observed mutation is a bug.
type Labels struct {
	Region string
	Zone   string
}

type stats struct {
	reads       atomic.Uint64
	writes      atomic.Uint64
	fetches     atomic.Uint64
	busy        atomic.Uint64
	labelTorn   atomic.Uint64
	fetchErrors atomic.Uint64
}

func main() {
	var (
		readers  = pflag.Int("readers", 8, "concurrent reader goroutines")
		writers  = pflag.Int("writers", 4, "concurrent writer goroutines")
		fetchers = pflag.Int("fetchers", 4, "concurrent fetcher goroutines (split over two request orders)")
		duration = pflag.Duration("duration", 3*time.Second, "how long to run")
		verbose  = pflag.Bool("verbose", false, "log container lifecycle events")
	)
	pflag.Parse()

	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		resources.SetLogger(log)
	}
	defer log.Sync()

	c := resources.New()
	defer c.Close()
	if *verbose {
		c.Subscribe(resources.NewLogObserver(log))
	}

	resources.Insert(c, Counter{})
	resources.Insert(c, Gauge{})
	resources.Insert(c, Labels{Region: "eu-west", Zone: "a"})

	var st stats
	deadline := time.Now().Add(*duration)

	var wg sync.WaitGroup
	for i := 0; i < *readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runReader(c, &st, deadline)
		}()
	}
	for i := 0; i < *writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runWriter(c, &st, deadline)
		}()
	}
	for i := 0; i < *fetchers; i++ {
		wg.Add(1)
		go func(reversed bool) {
			defer wg.Done()
			runFetcher(c, &st, deadline, reversed)
		}(i%2 == 1)
	}
	wg.Wait()

	if err := report(c, &st, *duration); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runReader(c *resources.Resources, st *stats, deadline time.Time) {
	for time.Now().Before(deadline) {
		ref, err := resources.Get[Labels](c)
		if err != nil {
			continue
		}
		l := ref.Value()
		ref.Release()
		if l.Region != "eu-west" || l.Zone != "a" {
			st.labelTorn.Add(1)
		}
		st.reads.Add(1)
	}
}

func runWriter(c *resources.Resources, st *stats, deadline time.Time) {
	for time.Now().Before(deadline) {
		// Alternate blocking and try acquisition so the busy path gets
		// exercised too.
		if st.writes.Load()%2 == 0 {
			w, err := resources.GetMut[Counter](c)
			if err != nil {
				continue
			}
			w.Value().N++
			w.Release()
			st.writes.Add(1)
			continue
		}

		w, err := resources.TryGetMut[Counter](c)
		if err != nil {
			st.busy.Add(1)
			continue
		}
		w.Value().N++
		w.Release()
		st.writes.Add(1)
	}
}

func runFetcher(c *resources.Resources, st *stats, deadline time.Time, reversed bool) {
	for time.Now().Before(deadline) {
		var b *resources.Batch
		var err error
		if reversed {
			b, err = resources.Fetch(c,
				resources.Write[Gauge](),
				resources.Read[Labels](),
				resources.Read[Counter](),
			)
		} else {
			b, err = resources.Fetch(c,
				resources.Read[Counter](),
				resources.Read[Labels](),
				resources.Write[Gauge](),
			)
		}
		if err != nil {
			st.fetchErrors.Add(1)
			continue
		}
		resources.Mut[Gauge](b).V++
		b.Release()
		st.fetches.Add(1)
	}
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("8"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	badStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

func report(c *resources.Resources, st *stats, d time.Duration) error {
	ref, err := resources.Get[Counter](c)
	if err != nil {
		return fmt.Errorf("read final counter: %w", err)
	}
	finalN := ref.Value().N
	ref.Release()

	gref, err := resources.Get[Gauge](c)
	if err != nil {
		return fmt.Errorf("read final gauge: %w", err)
	}
	finalV := gref.Value().V
	gref.Release()

	secs := d.Seconds()
	fmt.Println(titleStyle.Render("resbench"))
	row("duration", d.String())
	row("reads", rate(st.reads.Load(), secs))
	row("writes", rate(st.writes.Load(), secs))
	row("fetches", rate(st.fetches.Load(), secs))
	row("try busy", fmt.Sprintf("%d", st.busy.Load()))
	row("fetch errors", fmt.Sprintf("%d", st.fetchErrors.Load()))

	// Every write incremented Counter once and every fetch incremented
	// Gauge once; anything else means a lost update.
	writeOK := finalN == st.writes.Load()
	fetchOK := finalV == st.fetches.Load()
	tornOK := st.labelTorn.Load() == 0

	verdict(fmt.Sprintf("counter %d/%d", finalN, st.writes.Load()), writeOK)
	verdict(fmt.Sprintf("gauge %d/%d", finalV, st.fetches.Load()), fetchOK)
	verdict(fmt.Sprintf("torn label reads %d", st.labelTorn.Load()), tornOK)

	if !writeOK || !fetchOK || !tornOK {
		return fmt.Errorf("consistency check failed")
	}
	return nil
}

func row(label, value string) {
	fmt.Println(labelStyle.Render(label) + valueStyle.Render(value))
}

func verdict(msg string, ok bool) {
	if ok {
		fmt.Println(labelStyle.Render("check") + okStyle.Render(msg+" ok"))
		return
	}
	fmt.Println(labelStyle.Render("check") + badStyle.Render(msg+" FAILED"))
}

func rate(n uint64, secs float64) string {
	if secs <= 0 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d (%.0f/s)", n, float64(n)/secs)
}
