// Copyright 2025 Blindspot Software
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// checkcli is a developer tool for inspecting the envelopes a slave
// reports. It is not part of the master/slave protocol: it reads one JSON
// envelope, the same shape client.Client exchanges over the wire but
// without the length prefix, from a file or stdin and pretty-prints it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/lscobe16/simplecodetester/internal/buildinfo"
	"github.com/lscobe16/simplecodetester/internal/display"
	"github.com/lscobe16/simplecodetester/internal/wire"
)

const usage = `checkcli renders a slave's reported envelope as human-readable output.

Usage: checkcli [-format text|json|yaml|oneline] [-v] [file]

With no file argument, the envelope is read from stdin.
`

func newApp(stdin io.Reader, stdout, stderr io.Writer, args []string) *application {
	var app application

	app.stdin = stdin
	app.stdout = stdout
	app.stderr = stderr

	f := flag.NewFlagSet("checkcli", flag.ContinueOnError)
	format := f.String("format", "text", "output format: text, json, yaml, oneline")
	verbose := f.Bool("v", false, "include metadata in the rendered output")
	version := f.Bool("version", false, "print version information and exit")
	//nolint:errcheck // usage errors are reported through the returned application
	f.Parse(args)

	app.format = *format
	app.verbose = *verbose
	app.printVersion = *version
	app.files = f.Args()

	return &app
}

type application struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	format       string
	verbose      bool
	printVersion bool
	files        []string
}

func (app *application) start() error {
	if app.printVersion {
		fmt.Fprint(app.stdout, buildinfo.VersionString())

		return nil
	}

	var source io.Reader = app.stdin

	if len(app.files) > 1 {
		return fmt.Errorf("%s", usage)
	}

	if len(app.files) == 1 {
		f, err := os.Open(app.files[0])
		if err != nil {
			return fmt.Errorf("checkcli: %w", err)
		}
		defer f.Close()

		source = f
	}

	payload, err := io.ReadAll(source)
	if err != nil {
		return fmt.Errorf("checkcli: reading input: %w", err)
	}

	env, err := wire.Decode(payload)
	if err != nil {
		return fmt.Errorf("checkcli: decoding envelope: %w", err)
	}

	formatter := display.New(display.Config{
		Stdout:  app.stdout,
		Stderr:  app.stderr,
		Format:  app.format,
		Verbose: app.verbose,
	})

	formatter.WriteContent(contentFor(env))

	return nil
}

// contentFor translates one decoded envelope into the Content shape
// internal/display knows how to render. Envelope kinds that carry no
// interesting payload (SlaveStarted, SlaveTimedOut, DyingMessage,
// SlaveDiedWithUnknownError) fall back to a general text rendering.
func contentFor(env wire.Envelope) display.Content {
	switch env.Kind {
	case wire.KindCompilationFailed:
		return display.Content{
			Type:     display.TypeCompilationFailed,
			Data:     env.CompilationFailed.Output.Diagnostics,
			IsError:  true,
			Metadata: map[string]string{"uid": env.CompilationFailed.UID},
		}

	case wire.KindSubmissionResult:
		return display.Content{
			Type:     display.TypeSubmissionResult,
			Data:     env.SubmissionResult.Result,
			Metadata: map[string]string{"uid": env.SubmissionResult.UID},
		}

	case wire.KindSlaveDiedWithUnknownError:
		return display.Content{
			Type:     display.TypeGeneral,
			Data:     env.SlaveDiedWithUnknownError.Stacktrace,
			IsError:  true,
			Metadata: map[string]string{"uid": env.SlaveDiedWithUnknownError.UID, "msg": "slave died with unknown error"},
		}

	case wire.KindSlaveTimedOut:
		return display.Content{
			Type:     display.TypeGeneral,
			Data:     "slave timed out waiting for a submission",
			IsError:  true,
			Metadata: map[string]string{"uid": env.SlaveTimedOut.UID},
		}

	case wire.KindSlaveStarted:
		return display.Content{
			Type:     display.TypeGeneral,
			Data:     fmt.Sprintf("slave started, pid %d", env.SlaveStarted.PID),
			Metadata: map[string]string{"uid": env.SlaveStarted.UID},
		}

	case wire.KindDyingMessage:
		return display.Content{
			Type:     display.TypeGeneral,
			Data:     "slave exiting",
			Metadata: map[string]string{"uid": env.DyingMessage.UID},
		}

	default:
		raw, _ := json.MarshalIndent(env, "", "  ")

		return display.Content{Type: display.TypeGeneral, Data: string(raw)}
	}
}

func main() {
	app := newApp(os.Stdin, os.Stdout, os.Stderr, os.Args[1:])

	if err := app.start(); err != nil {
		log.Fatal(err)
	}
}
