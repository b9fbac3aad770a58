// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command fuzzdemo wires every pkg/fuzzer component together into one
// runnable in-memory fuzzing loop over []byte inputs, using the
// fixtures in pkg/fuzzer/fixtures.go as the concrete mutator/scheduler
// an embedder would otherwise supply.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/golem9247/fuzzcore/pkg/corelog"
	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/feedback"
	"github.com/golem9247/fuzzcore/pkg/fuzzconfig"
	"github.com/golem9247/fuzzcore/pkg/fuzzer"
	"github.com/golem9247/fuzzcore/pkg/log"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
	"github.com/golem9247/fuzzcore/pkg/restartio"
	"github.com/golem9247/fuzzcore/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	flagConfig   = flag.String("config", "fuzzdemo.yaml", "path to a fuzzconfig YAML file (optional)")
	flagSnapshot = flag.String("snapshot", "fuzzdemo.snapshot", "path to a restartio snapshot (optional)")
	flagRounds   = flag.Int("rounds", 20, "number of mutational rounds to run")
	flagVerbose  = flag.Int("v", 1, "log verbosity")
	flagDebug    = flag.Bool("debug", false, "log per-mutation diffs")
)

func main() {
	flag.Parse()
	log.SetVerbosity(*flagVerbose)

	cfg, err := fuzzconfig.Load(*flagConfig)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	prometheus.MustRegister(stats.NewPrometheusCollector("fuzzdemo"))

	c := corpus.New[[]byte]()
	c.Add(corpus.NewTestcase([]byte("seed"), "seed-0"), 1)
	state := fuzzer.NewState(c, rand.New(rand.NewSource(1)))

	if snap, err := restartio.Load(*flagSnapshot); err != nil {
		log.Fatalf("loading snapshot: %v", err)
	} else if snap.StageIdx != 0 {
		log.Logf(0, "resuming from a previous run at stage index %v", snap.StageIdx)
		state.SetResumeStageIdx(snap.StageIdx)
	}

	manager := &stderrEventManager{}
	executor := &demoExecutor{}

	concolicFb := feedback.NewConcolicFeedback[[]byte]("concolic")
	growsFeedback := &growsLongerFeedback{}
	fz := fuzzer.NewFuzzer[[]byte, *demoExecutor, *stderrEventManager](
		&fuzzer.RoundRobinScheduler[[]byte]{},
		feedback.Any[[]byte]{growsFeedback, concolicFb},
	)

	mutational := fuzzer.NewStdMutationalPushStage[[]byte, *demoExecutor, *stderrEventManager](fuzzer.ByteSliceMutator{})
	mutational.MaxIterations = cfg.MutationalMaxIterations
	mutational.Timer = fuzzer.NewFeatureTimer("fuzzdemo/mutational")
	mutational.Debug = *flagDebug
	mutational.Serialize = func(in []byte) []byte { return in }
	mutationalStage := fuzzer.NewPushStageAdapter[[]byte, *demoExecutor, *stderrEventManager](state, mutational)

	jobs := fuzzer.NewJobRunner(cfg.MaxConcurrentJobs)
	reportStage := fuzzer.NewClosureStage[[]byte, *demoExecutor, *stderrEventManager](state,
		func(fz *fuzzer.Fuzzer[[]byte, *demoExecutor, *stderrEventManager], ex *demoExecutor, st *fuzzer.State[[]byte], mgr *stderrEventManager) error {
			return jobs.Run(context.Background(), func(ctx context.Context) error {
				log.Logf(1, "corpus size=%v executions=%v", st.Corpus.Len(), st.Executions())
				return nil
			})
		})

	pipeline := fuzzer.Cons[[]byte, *demoExecutor, *stderrEventManager](
		mutationalStage,
		fuzzer.Cons[[]byte, *demoExecutor, *stderrEventManager](
			reportStage,
			fuzzer.EmptyTuple[[]byte, *demoExecutor, *stderrEventManager]{},
		),
	)

	for round := 0; round < *flagRounds; round++ {
		id, err := fz.Scheduler.Next(state)
		if err != nil {
			log.Fatalf("scheduler: %v", err)
		}
		state.SetCurrentCorpusId(id)

		if err := pipeline.PerformAll(fz, executor, state, manager); err != nil {
			var fuzzErr *fuzzer.Error
			if isShuttingDown(err, &fuzzErr) {
				log.Logf(0, "stopping after round %v: %v", round, err)
				break
			}
			log.Fatalf("round %v: %v", round, err)
		}
	}

	snap := restartio.Snapshot{StageIdx: state.ResumeStageIdx()}
	if err := restartio.Save(*flagSnapshot, snap); err != nil {
		log.Fatalf("saving snapshot: %v", err)
	}

	fmt.Printf("done: corpus=%v executions=%v\n", state.Corpus.Len(), state.Executions())
	os.Exit(0)
}

func isShuttingDown(err error, target **fuzzer.Error) bool {
	var fuzzErr *fuzzer.Error
	if e, ok := err.(*fuzzer.Error); ok {
		fuzzErr = e
	}
	*target = fuzzErr
	return fuzzErr != nil && fuzzErr.Kind == fuzzer.ShuttingDown
}

// growsLongerFeedback preserves any input longer than the longest one it
// has seen so far, and any run whose exit kind is not Ok — a toy
// coverage stand-in good enough to keep the corpus moving without
// pulling in a real instrumentation backend.
type growsLongerFeedback struct{ longest int }

func (f *growsLongerFeedback) IsInteresting(state *fuzzer.State[[]byte], manager fuzzer.EventManager, input []byte, observers *observer.Set, exitKind queue.ExitKind) (bool, error) {
	if exitKind != queue.Ok {
		return true, nil
	}
	if len(input) > f.longest {
		f.longest = len(input)
		return true, nil
	}
	return false, nil
}

func (f *growsLongerFeedback) AppendMetadata(state *fuzzer.State[[]byte], manager fuzzer.EventManager, observers *observer.Set, tc *corpus.Testcase[[]byte]) error {
	return nil
}

// demoExecutor runs a trivial in-process "target": it crashes on any
// input containing a 0xFF byte and otherwise reports Ok. On every run it
// feeds a copy of the input into the concolic observer as the trace, so
// feedback.ConcolicFeedback has something to attach.
type demoExecutor struct {
	obs *observer.Set
}

func (e *demoExecutor) Observers() *observer.Set {
	if e.obs == nil {
		e.obs = observer.NewSet(
			observer.NewStdOutObserver("stdout"),
			observer.NewConcolicObserver("concolic"),
		)
	}
	return e.obs
}

func (e *demoExecutor) RunTarget(state *fuzzer.State[[]byte], manager fuzzer.EventManager, input []byte) (queue.ExitKind, error) {
	set := e.Observers()
	if out, ok := observer.Get(set, observer.NewHandle[*observer.StdOutObserver]("stdout")); ok {
		out.ObserveStdout([]byte(fmt.Sprintf("ran %d bytes", len(input))))
	}
	if trace, ok := observer.Get(set, observer.NewHandle[*observer.ConcolicObserver]("concolic")); ok {
		trace.SetTrace(append([]byte(nil), input...))
	}
	corelog.DiffPrograms(false, "unused", nil, nil) // corelog stays wired even when the stage-level diff is disabled

	for _, b := range input {
		if b == 0xFF {
			return queue.Crash, nil
		}
	}
	return queue.Ok, nil
}

// stderrEventManager logs every event at verbosity 1 instead of
// shipping them over a real transport, which remains an external
// collaborator's concern (spec.md §6).
type stderrEventManager struct{}

func (m *stderrEventManager) Fire(event any) error {
	log.Logf(1, "event: %#v", event)
	return nil
}

func (m *stderrEventManager) MaybeReportProgress(execs int64, interval time.Duration) error {
	return nil
}

func (m *stderrEventManager) OnShutdown() error {
	log.Logf(0, "shutting down")
	return nil
}
