package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
	"github.com/hazyhaar/voxsearch/pkg/mcpquic"
	"github.com/hazyhaar/voxsearch/pkg/voice"
)

func cmdSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	datasetID := fs.String("dataset", "", "dataset ID (default: configured default dataset)")
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	fs.Parse(args)

	cfg, _, reg, err := setup(context.Background(), *cfgPath)
	if err != nil {
		return err
	}
	id := *datasetID
	if id == "" {
		id = cfg.DefaultDataset
	}

	res, err := reg.Search(id, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printRecords(os.Stdout, res.Records)
	fmt.Fprintf(os.Stderr, "%d/%d records match %q\n", len(res.Records), res.Total, res.Normalized)
	return nil
}

func printRecords(w io.Writer, records []dataset.Record) {
	for _, r := range records {
		fmt.Fprintln(w, r.Text)
	}
}

// cmdListen runs an interactive voice session where every stdin line stands
// in for one spoken utterance. Each line starts a new pass.
func cmdListen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	cfgPath := fs.String("config", "", "path to config file")
	datasetID := fs.String("dataset", "", "dataset ID (default: configured default dataset)")
	timeout := fs.Duration("timeout", 0, "give up a pass after this long without input (0 = wait)")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, reg, err := setup(ctx, *cfgPath)
	if err != nil {
		return err
	}
	id := *datasetID
	if id == "" {
		id = cfg.DefaultDataset
	}
	data, err := reg.Get(id)
	if err != nil {
		return err
	}

	in := newEOFReader(os.Stdin)
	sess := voice.NewSession(uuid.NewString(), data, voice.NewLineRecognizer(in), voice.WithLogger(logger))
	defer sess.Close()

	done := make(chan voice.Snapshot, 1)
	sess.OnChange(func(s voice.Snapshot) {
		if s.Status != "" {
			fmt.Fprintln(os.Stderr, s.Status)
		}
		if s.State == voice.Idle {
			select {
			case done <- s:
			default:
			}
		}
	})

	for {
		passCtx, cancel := ctx, context.CancelFunc(func() {})
		if *timeout > 0 {
			passCtx, cancel = context.WithTimeout(ctx, *timeout)
		}
		if _, err := sess.Toggle(passCtx); err != nil {
			cancel()
			return err
		}

		var snap voice.Snapshot
		select {
		case <-ctx.Done():
			cancel()
			return nil
		case snap = <-done:
		}
		cancel()

		select {
		case <-in.done:
			return nil
		default:
		}
		if snap.Status == "" {
			fmt.Fprintf(os.Stderr, "query %q: %d results\n", snap.Query, len(snap.Results))
			printRecords(os.Stdout, snap.Results)
		}
	}
}

// eofReader closes done once the wrapped reader is exhausted.
type eofReader struct {
	r    io.Reader
	once sync.Once
	done chan struct{}
}

func newEOFReader(r io.Reader) *eofReader {
	return &eofReader{r: r, done: make(chan struct{})}
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil {
		e.once.Do(func() { close(e.done) })
	}
	return n, err
}

func cmdAsk(args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	addr := fs.String("addr", "localhost:8420", "server address (UDP)")
	datasetID := fs.String("dataset", "", "dataset ID (default: the server's default)")
	insecure := fs.Bool("insecure", true, "skip TLS verification (self-signed dev certs)")
	timeout := fs.Duration("timeout", 10*time.Second, "overall timeout")
	fs.Parse(args)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c := mcpquic.NewClient(*addr, mcpquic.ClientTLSConfig(*insecure))
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Close()

	text, err := c.Search(ctx, *datasetID, strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	var res dataset.SearchResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return fmt.Errorf("decode search result: %w", err)
	}
	printRecords(os.Stdout, res.Records)
	return nil
}
