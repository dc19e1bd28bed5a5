// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// slave is the untrusted-code execution process of the automated judge.
// It is invoked once per submission by a trusted master, compiles the
// submission in memory, runs the requested checks against it, reports
// exactly one terminal message followed by a DyingMessage, and exits.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/debug"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lscobe16/simplecodetester/internal/buildinfo"
	"github.com/lscobe16/simplecodetester/internal/check"
	"github.com/lscobe16/simplecodetester/internal/client"
	"github.com/lscobe16/simplecodetester/internal/compiler"
	"github.com/lscobe16/simplecodetester/internal/fsm"
	"github.com/lscobe16/simplecodetester/internal/loader"
	"github.com/lscobe16/simplecodetester/internal/runner"
	"github.com/lscobe16/simplecodetester/internal/sandbox"
	"github.com/lscobe16/simplecodetester/internal/submission"
	"github.com/lscobe16/simplecodetester/internal/wire"
)

const (
	usageInfo   = `Usage: slave <masterPort> <slaveUid>`
	defaultIdle = 30 * time.Second
	flushWait   = 2 * time.Second
)

func newSlave(stdout io.Writer, exitFunc func(int), args []string) *slave {
	var s slave

	s.stdout = stdout
	s.exit = exitFunc
	s.idleTimeout = defaultIdle

	f := flag.NewFlagSet("slave", flag.ContinueOnError)
	logDir := f.String("logdir", ".", "directory to write the per-slave log file into")
	version := f.Bool("version", false, "print version information and exit")
	configPath := f.String("config", "", "optional YAML file overriding the idle timeout, check budget and sandbox whitelist")
	idle := f.Duration("idle", 0, "idle timeout before reporting SlaveTimedOut (overrides -config and the built-in default)")
	checkBudget := f.Duration("checkBudget", 0, "per-check wall-clock budget (overrides -config and the built-in default)")
	//nolint:errcheck // usage errors are reported through the returned slave, not flag's own output
	f.Parse(args)

	if *version {
		s.printVersion = true
		return &s
	}

	if f.NArg() != 2 {
		s.usageErr = fmt.Errorf("%s", usageInfo)
		return &s
	}

	s.masterAddr = "localhost:" + f.Arg(0)
	s.uid = f.Arg(1)
	s.logDir = *logDir
	s.configPath = *configPath
	s.idleFlag = *idle
	s.checkBudgetFlag = *checkBudget

	return &s
}

// slave represents the slave process for one submission.
type slave struct {
	stdout io.Writer
	exit   func(int)

	masterAddr   string
	uid          string
	logDir       string
	idleTimeout  time.Duration
	usageErr     error
	printVersion bool

	configPath      string
	idleFlag        time.Duration
	checkBudgetFlag time.Duration
}

// fileConfig is the shape of the optional YAML file named by -config. The
// sandbox whitelist half of the same file is parsed separately, by
// sandbox.Load, since it owns that shape.
type fileConfig struct {
	IdleTimeout string `yaml:"idleTimeout"`
	CheckBudget string `yaml:"checkBudget"`
}

// resolveConfig merges the optional -config file with flag overrides,
// flags always winning, and returns the idle timeout, check budget and
// sandbox policy the lifecycle should run with.
func (s *slave) resolveConfig() (idle, checkBudget time.Duration, policy *sandbox.Policy) {
	idle, checkBudget, policy = s.idleTimeout, runner.DefaultCheckBudget, sandbox.Default()

	if s.configPath != "" {
		data, err := os.ReadFile(s.configPath)
		if err != nil {
			log.Printf("slave: reading config %s: %v", s.configPath, err)
		} else {
			if p, err := sandbox.Load(data); err != nil {
				log.Printf("slave: parsing sandbox whitelist from %s: %v", s.configPath, err)
			} else {
				policy = p
			}

			var cfg fileConfig
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				log.Printf("slave: parsing config %s: %v", s.configPath, err)
			} else {
				if d, ok := parseConfigDuration(s.configPath, "idleTimeout", cfg.IdleTimeout); ok {
					idle = d
				}

				if d, ok := parseConfigDuration(s.configPath, "checkBudget", cfg.CheckBudget); ok {
					checkBudget = d
				}
			}
		}
	}

	if s.idleFlag != 0 {
		idle = s.idleFlag
	}

	if s.checkBudgetFlag != 0 {
		checkBudget = s.checkBudgetFlag
	}

	return idle, checkBudget, policy
}

func parseConfigDuration(path, field, value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("slave: %s: invalid %s %q: %v", path, field, value, err)
		return 0, false
	}

	return d, true
}

func (s *slave) start() {
	if s.printVersion {
		fmt.Fprint(s.stdout, buildinfo.VersionString())
		s.exit(0)

		return
	}

	if s.usageErr != nil {
		fmt.Fprintln(s.stdout, s.usageErr)
		s.exit(1)

		return
	}

	logFile, err := os.Create(s.logDir + "/" + s.uid + ".log")
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	} else {
		log.Printf("slave: could not open log file, logging to default output: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
		}
	}()

	idle, checkBudget, policy := s.resolveConfig()
	args := newSlaveArgs(s.uid, idle, checkBudget, policy)

	args.client, err = client.DialAndHandshake(context.Background(), s.masterAddr, args.handle)
	if err != nil {
		log.Printf("slave: could not connect to master: %v", err)
		s.exit(1)

		return
	}

	if err := args.client.QueueMessage(wire.NewSlaveStarted(s.uid, os.Getpid())); err != nil {
		log.Printf("slave: could not announce startup: %v", err)
	}

	final, err := fsm.Run(context.Background(), args, awaitSubmission)
	if err != nil {
		log.Printf("slave: state machine exited with error: %v", err)
		reportUnexpected(final, err)
	}

	if final.client != nil {
		final.client.Stop(flushWait)
	}

	s.exit(0)
}

func main() {
	newSlave(os.Stdout, os.Exit, os.Args[1:]).start()
}

// slaveArgs threads the data every state of the lifecycle needs.
type slaveArgs struct {
	uid         string
	idle        time.Duration
	checkBudget time.Duration
	pool        *loader.Pool

	client   *client.Client
	compiler *compiler.Compiler
	runner   *runner.Runner

	submission *wire.CompileAndCheckSubmission
	compiled   *submission.CompiledSubmission
	result     check.SubmissionCheckResult

	incoming chan wire.Envelope
	accepted bool
}

// newSlaveArgs wires a fresh loader.Pool under policy and idle/checkBudget
// knobs resolved from flags and an optional config file. checkBudget of 0
// means "use runner.DefaultCheckBudget", applied once compileSubmission
// constructs the Runner.
func newSlaveArgs(uid string, idle, checkBudget time.Duration, policy *sandbox.Policy) slaveArgs {
	pool := loader.NewPool(policy)

	return slaveArgs{
		uid:         uid,
		idle:        idle,
		checkBudget: checkBudget,
		pool:        pool,
		compiler:    compiler.New(pool),
		incoming:    make(chan wire.Envelope, 1),
	}
}

// handle is the client's inbound envelope callback. It only ever accepts
// one CompileAndCheckSubmission, delivered while the lifecycle is waiting
// for it; anything else, or a second submission, is logged and ignored
// rather than resetting the state machine.
func (a *slaveArgs) handle(env wire.Envelope) {
	if env.Kind != wire.KindCompileAndCheckSubmission {
		log.Printf("slave: ignoring unexpected message kind %q", env.Kind)
		return
	}

	if a.accepted {
		log.Print("slave: ignoring a second submission; one slave handles exactly one")
		return
	}

	a.accepted = true
	a.incoming <- env
}
