// Command conker runs a Conker program read from a file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"conker/parser"
	"conker/scheduler"
	"conker/trace"
	"conker/types"
)

func main() {
	traceEnabled := flag.Bool("trace", false, "Enable execution tracing")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: conker [-trace] <program-file>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	logger := trace.Init(*traceEnabled)

	source, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", path, err)
	}

	prog, err := parser.ParseProgram(string(source))
	if err != nil {
		log.Fatalf("parse error: %v", err)
	}

	seed, err := seedFromEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}

	sched, err := scheduler.New(prog, scheduler.Options{
		Log:  logger,
		Seed: seed,
		Out:  writeOut,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	outcome := sched.Run(context.Background())
	if trace.IsEnabled() {
		fmt.Fprintf(os.Stderr, "conker: run finished: error=%s exit_code=%d\n", outcome.Error, outcome.ExitCode)
	}
	os.Exit(outcome.ExitCode)
}

// seedFromEnv reads CONKER_SEED (spec §6: "an optional CONKER_SEED... to
// seed the scheduler's tie-break RNG for reproducible traces"). An unset or
// empty value selects the registry's default FIFO tie-break.
func seedFromEnv() (*int64, error) {
	raw := os.Getenv("CONKER_SEED")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid CONKER_SEED %q: %w", raw, err)
	}
	return &v, nil
}

// writeOut renders a value sent to $out: one line, using the value's own
// String() representation, which is the byte-for-byte format the spec fixes
// (§4.F).
func writeOut(v types.Value) {
	fmt.Println(v.String())
}
