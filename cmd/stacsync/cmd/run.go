package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/aweris/stacsync"
	"github.com/aweris/stacsync/internal/compression"
	"github.com/aweris/stacsync/internal/store"
)

// conflictPolicy decides what create does with an item that already exists.
type conflictPolicy string

const (
	conflictFail    conflictPolicy = "fail"
	conflictSkip    conflictPolicy = "skip"
	conflictReplace conflictPolicy = "replace"
)

func parseConflictPolicy(s string) (conflictPolicy, error) {
	switch p := conflictPolicy(s); p {
	case conflictFail, conflictSkip, conflictReplace:
		return p, nil
	}
	return "", fmt.Errorf("invalid conflict policy %q (want fail, skip or replace)", s)
}

type outcome string

const (
	outcomeCreated  outcome = "created"
	outcomeReplaced outcome = "replaced"
	outcomeDeleted  outcome = "deleted"
	outcomeSkipped  outcome = "skipped"
	outcomeFailed   outcome = "failed"
)

var outcomeOrder = []outcome{outcomeCreated, outcomeReplaced, outcomeDeleted, outcomeSkipped, outcomeFailed}

// job is one transaction plus a label pointing back at its source.
type job struct {
	op     stacsync.Operation
	req    stacsync.TransactionRequest
	source string
}

type failure struct {
	source string
	err    error
}

// summary collects outcomes from concurrent jobs.
type summary struct {
	mu       sync.Mutex
	counts   map[outcome]int
	failures []failure
}

func newSummary() *summary {
	return &summary{counts: make(map[outcome]int)}
}

func (s *summary) record(src string, o outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[o]++
	if err != nil {
		s.failures = append(s.failures, failure{source: src, err: err})
	}
}

func (s *summary) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[outcomeFailed]
}

func (s *summary) Count(o outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[o]
}

func (s *summary) Print(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.Slice(s.failures, func(i, j int) bool { return s.failures[i].source < s.failures[j].source })
	for _, f := range s.failures {
		fmt.Fprintf(w, "FAILED %s: %v\n", f.source, f.err)
	}
	for i, o := range outcomeOrder {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprintf(w, "%s %d", o, s.counts[o])
	}
	fmt.Fprintln(w)
}

// runner executes jobs through a bounded pool.
type runner struct {
	tx          stacsync.Transactor
	concurrency int
	onConflict  conflictPolicy
	log         *slog.Logger
}

func (r *runner) Run(ctx context.Context, jobs []job) *summary {
	sum := newSummary()
	p := pool.New().WithMaxGoroutines(r.concurrency)
	for _, j := range jobs {
		p.Go(func() {
			o, err := r.execute(ctx, j)
			if err != nil {
				r.log.Debug("transaction failed", "source", j.source, "error", err)
			}
			sum.record(j.source, o, err)
		})
	}
	p.Wait()
	return sum
}

func (r *runner) execute(ctx context.Context, j job) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcomeFailed, err
	}

	err := r.tx.Do(ctx, j.op, j.req)
	switch {
	case err == nil:
		switch j.op {
		case stacsync.OpCreate:
			return outcomeCreated, nil
		case stacsync.OpReplace:
			return outcomeReplaced, nil
		default:
			return outcomeDeleted, nil
		}
	case j.op == stacsync.OpCreate && errors.Is(err, stacsync.ErrAlreadyExists):
		switch r.onConflict {
		case conflictSkip:
			return outcomeSkipped, nil
		case conflictReplace:
			if err := r.tx.Replace(ctx, j.req); err != nil {
				return outcomeFailed, err
			}
			return outcomeReplaced, nil
		}
	}
	return outcomeFailed, err
}

// session is the client and logger of one command invocation.
type session struct {
	settings settings
	client   *stacsync.Client
	log      *slog.Logger
	closers  []io.Closer
}

func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadSettings()
	if err != nil {
		return nil, err
	}

	log, logCloser, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	client, err := stacsync.New(
		stacsync.WithCatalogURL(cfg.CatalogURL),
		stacsync.WithTimeout(cfg.Timeout),
		stacsync.WithInsecureSkipVerify(cfg.Insecure),
		stacsync.WithMaxAttempts(cfg.MaxAttempts),
		stacsync.WithLogger(log),
	)
	if err != nil {
		_ = logCloser.Close()
		return nil, err
	}

	return &session{
		settings: cfg,
		client:   client,
		log:      log,
		closers:  []io.Closer{client, logCloser},
	}, nil
}

func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (s *session) request(f stacsync.Feature) stacsync.TransactionRequest {
	return stacsync.TransactionRequest{
		Bearer:       s.settings.Token,
		CollectionID: s.settings.Collection,
		Feature:      f,
	}
}

// run executes jobs, prints the summary and fails when any job failed.
func (s *session) run(cmd *cobra.Command, jobs []job, onConflict conflictPolicy) error {
	r := &runner{
		tx:          s.client,
		concurrency: s.settings.Concurrency,
		onConflict:  onConflict,
		log:         s.log,
	}

	s.log.Info("running transactions", "count", len(jobs), "collection", s.settings.Collection, "catalog", s.client.CatalogURL())
	sum := r.Run(cmd.Context(), jobs)
	sum.Print(cmd.ErrOrStderr())

	if n := sum.Failed(); n > 0 {
		return fmt.Errorf("%d of %d transactions failed", n, len(jobs))
	}
	return nil
}

// loadFeatureJobs reads features from paths and turns each into a job.
func loadFeatureJobs(cmd *cobra.Command, s *session, op stacsync.Operation, paths []string) ([]job, error) {
	recursive, _ := cmd.Flags().GetBool("recursive")

	decomp, err := compression.NewDecompressor()
	if err != nil {
		return nil, err
	}
	defer decomp.Close()

	entries, err := store.NewLocalStore(decomp, store.WithRecursive(recursive)).LoadAll(cmd.Context(), paths...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no feature files found in %v", paths)
	}

	jobs := make([]job, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, job{
			op:     op,
			req:    s.request(e.Feature),
			source: fmt.Sprintf("%s#%d (%s)", e.Path, e.Index, e.Feature),
		})
	}
	return jobs, nil
}
