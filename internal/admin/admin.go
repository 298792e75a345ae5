// Package admin is the single place a failed run is reported. Every failure
// that reaches the top of usc-run goes through Reporter.Report exactly once.
package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/StrategyComplex/congress-thetownhall/internal/jsonl"
	"github.com/StrategyComplex/congress-thetownhall/internal/task"
)

// Incident is what gets written to the admin log and sent to the webhook.
type Incident struct {
	Time  time.Time `json:"time"`
	Host  string    `json:"host,omitempty"`
	Args  []string  `json:"args"`
	Error string    `json:"error"`
	Chain []string  `json:"chain,omitempty"`
	Stack string    `json:"stack,omitempty"`
}

// Reporter fans an incident out to stderr, the admin log and the webhook.
// Empty LogFile or WebhookURL disables that sink.
type Reporter struct {
	Stderr     io.Writer
	LogFile    string
	WebhookURL string
	HTTP       *http.Client
}

// NewIncident describes err for the command line argv.
func NewIncident(err error, argv []string) Incident {
	host, _ := os.Hostname()
	inc := Incident{
		Time:  time.Now().UTC(),
		Host:  host,
		Args:  argv,
		Error: err.Error(),
	}
	for e := errors.Unwrap(err); e != nil; e = errors.Unwrap(e) {
		inc.Chain = append(inc.Chain, e.Error())
	}
	var pe *task.PanicError
	if errors.As(err, &pe) {
		inc.Stack = string(pe.Stack)
	}
	return inc
}

// Report delivers the incident. Sink failures are written to Stderr and do
// not stop the remaining sinks.
func (r *Reporter) Report(ctx context.Context, err error, argv []string) Incident {
	inc := NewIncident(err, argv)
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	fmt.Fprintf(stderr, "usc-run: %s\n", inc.Error)
	if inc.Stack != "" {
		fmt.Fprintf(stderr, "\n%s\n", strings.TrimRight(inc.Stack, "\n"))
	}

	if r.LogFile != "" {
		if err := jsonl.Append(r.LogFile, inc); err != nil {
			fmt.Fprintf(stderr, "usc-run: recording incident: %s\n", err)
		}
	}
	if r.WebhookURL != "" {
		if err := r.notify(ctx, inc); err != nil {
			fmt.Fprintf(stderr, "usc-run: notifying admin: %s\n", err)
		}
	}
	return inc
}

func (r *Reporter) notify(ctx context.Context, inc Incident) error {
	body, err := json.Marshal(inc)
	if err != nil {
		return fmt.Errorf("marshaling incident: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	hc := r.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", r.WebhookURL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: %s", r.WebhookURL, resp.Status)
	}
	return nil
}
