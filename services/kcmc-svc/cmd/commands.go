package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"kcmc/pkg/apperror"
	"kcmc/pkg/client"
	"kcmc/pkg/logger"
	"kcmc/pkg/server"
	kcmcsvc "kcmc/services/kcmc-svc"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/report"
	"kcmc/services/kcmc-svc/internal/service"
)

// usageError marks wrong command-line usage.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

type command struct {
	app    *kcmcsvc.App
	stdout io.Writer
	stdin  io.Reader
}

func (c *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "generate":
		return c.generate(ctx, args)
	case "evaluate":
		return c.evaluate(ctx, args)
	case "optimize":
		return c.optimize(ctx, args)
	case "report":
		return c.report(ctx, args)
	case "serve":
		return c.serve(ctx)
	default:
		return usagef("unknown command %q", name)
	}
}

// ==================== Arguments ====================

// parseKM reads the K2M3 shorthand.
func parseKM(token string) (k, m int, ok bool) {
	upper := strings.ToUpper(token)
	ks, ms, found := strings.Cut(strings.TrimPrefix(upper, "K"), "M")
	if !found || !strings.HasPrefix(upper, "K") {
		return 0, 0, false
	}
	k, errK := strconv.Atoi(ks)
	m, errM := strconv.Atoi(ms)
	if errK != nil || errM != nil {
		return 0, 0, false
	}
	return k, m, true
}

// requirements reads either "K2M3" or "2 3" from the head of args and returns
// the rest.
func requirements(args []string) (k, m int, rest []string, err error) {
	if len(args) == 0 {
		return 0, 0, nil, usagef("k and m are required")
	}
	if k, m, ok := parseKM(args[0]); ok {
		return k, m, args[1:], nil
	}
	if len(args) < 2 {
		return 0, 0, nil, usagef("k and m are required, got %q", args[0])
	}
	k, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, nil, usagef("bad k %q", args[0])
	}
	m, err = strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, nil, usagef("bad m %q", args[1])
	}
	return k, m, args[2:], nil
}

func parseInts(tokens []string, what string) ([]int, error) {
	out := make([]int, 0, len(tokens))
	for _, t := range tokens {
		v, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, usagef("bad %s %q", what, t)
		}
		out = append(out, v)
	}
	return out, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// remoteClient returns a client of a running kcmc-svc, or nil for local runs.
func remoteClient(baseURL string) *client.Client {
	if baseURL == "" {
		return nil
	}
	cfg := client.DefaultConfig()
	cfg.BaseURL = baseURL
	return client.New(cfg)
}

// ==================== generate ====================

// generate prints one feasible instance per seed. Seed 0 draws a random seed.
func (c *command) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	budget := fs.Int("budget", service.DefaultSeedBudget, "seeds tried after each given seed")
	full := fs.Bool("full", false, "print the full form with edge sections")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}

	rest := fs.Args()
	if len(rest) < 7 {
		return usagef("generate needs <pois> <sensors> <sinks> <area> <cov_r> <com_r> <k> <m> <seed>...")
	}
	geometry, err := parseInts(rest[:6], "geometry parameter")
	if err != nil {
		return err
	}
	k, m, seedArgs, err := requirements(rest[6:])
	if err != nil {
		return err
	}
	if len(seedArgs) == 0 {
		return usagef("at least one seed is required")
	}

	for _, token := range seedArgs {
		seed, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return usagef("bad seed %q", token)
		}
		if seed == 0 {
			seed = 100000000 + rand.Int64N(200000000)
		}

		params := instance.Params{
			POIs:                geometry[0],
			Sensors:             geometry[1],
			Sinks:               geometry[2],
			AreaSide:            geometry[3],
			CoverageRadius:      geometry[4],
			CommunicationRadius: geometry[5],
			Seed:                seed,
		}
		in, err := c.app.Engine.GenerateFeasible(ctx, params, k, m, *budget)
		if err != nil {
			return err
		}

		text := in.EncodeShort()
		if *full {
			text = in.Encode()
		}
		fmt.Fprintf(c.stdout, "%s\t%d\t%d\n", text, k, m)
	}
	return nil
}

// ==================== evaluate ====================

// evaluate prints the validation line. k <= 0 prints the full form instead.
func (c *command) evaluate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	crossCheck := fs.Bool("cross-check", false, "compare path counts against max-flow")
	remote := fs.String("remote", "", "base URL of a running kcmc-svc")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}

	k, m, rest, err := requirements(fs.Args())
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return usagef("evaluate needs an instance")
	}

	if k <= 0 {
		in, err := c.app.Engine.Load(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(c.stdout, in.Encode())
		return nil
	}

	inactive, err := parseInts(rest[1:], "sensor id")
	if err != nil {
		return err
	}

	var (
		line     string
		warnings []string
	)
	if api := remoteClient(*remote); api != nil {
		v, err := api.Validate(ctx, client.Problem{Instance: rest[0], K: k, M: m, Inactive: inactive}, *crossCheck)
		if err != nil {
			return err
		}
		line, warnings = v.Line, v.Warnings
	} else {
		v, err := c.app.Engine.Validate(ctx, service.Problem{Instance: rest[0], K: k, M: m, Inactive: inactive}, *crossCheck)
		if err != nil {
			return err
		}
		line, warnings = v.Line, v.Warnings
	}

	fmt.Fprintln(c.stdout, line)
	for _, w := range warnings {
		logger.Log.Warn("Cross-check mismatch", "detail", w)
	}
	return nil
}

// ==================== optimize ====================

// optimize prints one runtime line per minimizer.
func (c *command) optimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	methods := fs.String("methods", "", "comma separated minimizers (default: engine.methods or all)")
	inactive := fs.String("inactive", "", "comma separated sensors kept inactive")
	remote := fs.String("remote", "", "base URL of a running kcmc-svc")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return usagef("optimize needs <instance> <k> <m>")
	}
	k, m, extra, err := requirements(rest[1:])
	if err != nil {
		return err
	}
	if len(extra) > 0 {
		return usagef("unexpected arguments %v", extra)
	}
	excluded, err := parseInts(splitList(*inactive), "sensor id")
	if err != nil {
		return err
	}

	var out []byte
	if api := remoteClient(*remote); api != nil {
		problem := client.Problem{Instance: rest[0], K: k, M: m, Inactive: excluded}
		if out, err = api.Report(ctx, problem, splitList(*methods), string(report.FormatTSV)); err != nil {
			return err
		}
	} else {
		problem := service.Problem{Instance: rest[0], K: k, M: m, Inactive: excluded}
		suite, err := c.app.Engine.Suite(ctx, problem, splitList(*methods))
		if err != nil {
			return err
		}
		if out, err = report.Render(ctx, report.FormatTSV, &report.Data{Suites: []*service.Suite{suite}}); err != nil {
			return err
		}
	}

	_, err = c.stdout.Write(out)
	return err
}

// ==================== report ====================

// report runs a suite per input line and renders all of them in one report.
// Lines are "instance<TAB>k<TAB>m" or "instance K2M3"; blank lines and lines
// starting with # are skipped.
func (c *command) report(ctx context.Context, args []string) error {
	cfg := c.app.Config

	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	formatName := fs.String("format", cfg.Report.DefaultFormat, "tsv, json, md, xlsx or pdf")
	output := fs.String("o", "", "output file (default: stdout for text formats)")
	methods := fs.String("methods", "", "comma separated minimizers")
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}

	format, err := report.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	input := c.stdin
	if fs.NArg() > 0 {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return apperror.Wrap(err, apperror.CodeInvalidArgument, "cannot open problems file")
		}
		defer f.Close()
		input = f
	}

	problems, err := readProblems(input)
	if err != nil {
		return err
	}

	data := &report.Data{
		Title:   cfg.Report.Title,
		Author:  cfg.Report.Author,
		Version: cfg.App.Version,
	}
	for _, p := range problems {
		suite, err := c.app.Engine.Suite(ctx, p, splitList(*methods))
		if err != nil {
			return err
		}
		data.Suites = append(data.Suites, suite)
	}

	body, err := report.Render(ctx, format, data)
	if err != nil {
		return err
	}

	path := *output
	if path == "" && (format == report.FormatXLSX || format == report.FormatPDF) {
		path = filepath.Join(cfg.Report.OutputDir, "kcmc-report"+format.Extension())
	}
	if path == "" {
		_, err = c.stdout.Write(body)
		return err
	}

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return apperror.Wrap(err, apperror.CodeReportError, "cannot write report")
	}
	logger.Log.Info("Report written", "path", path, "format", format, "suites", len(data.Suites))
	return nil
}

func readProblems(r io.Reader) ([]service.Problem, error) {
	var problems []service.Problem

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(strings.ReplaceAll(text, "\t", " "))
		// Ключ экземпляра содержит пробелы, поэтому K и M берём с конца
		var (
			k, m int
			n    int
			ok   bool
		)
		if k, m, ok = parseKM(fields[len(fields)-1]); ok {
			n = 1
		} else if len(fields) >= 3 {
			var errK, errM error
			k, errK = strconv.Atoi(fields[len(fields)-2])
			m, errM = strconv.Atoi(fields[len(fields)-1])
			ok = errK == nil && errM == nil
			n = 2
		}
		if !ok || len(fields) <= n {
			return nil, usagef("line %d: expected <instance> <k> <m>", line)
		}

		problems = append(problems, service.Problem{
			Instance: strings.Join(fields[:len(fields)-n], " "),
			K:        k,
			M:        m,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "cannot read problems")
	}
	if len(problems) == 0 {
		return nil, usagef("no problems to report")
	}
	return problems, nil
}

// ==================== serve ====================

func (c *command) serve(ctx context.Context) error {
	cfg := c.app.Config

	srv := server.New(cfg, c.app.Router())
	srv.OnShutdown("app", c.app.Close)

	logger.Info("Starting kcmc service",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"rate_limit", c.app.Limiter != nil,
	)
	return srv.Run(ctx)
}
