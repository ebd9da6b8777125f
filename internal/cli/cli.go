// Package cli provides command-line interface functionality for cruisegrader.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sankatt/cruisegrader/internal/analysis"
	"github.com/Sankatt/cruisegrader/internal/batch"
	"github.com/Sankatt/cruisegrader/internal/config"
	"github.com/Sankatt/cruisegrader/internal/errors"
	"github.com/Sankatt/cruisegrader/internal/grader"
	"github.com/Sankatt/cruisegrader/internal/grading"
	"github.com/Sankatt/cruisegrader/internal/output"
	"github.com/Sankatt/cruisegrader/internal/requirement"
	"github.com/Sankatt/cruisegrader/internal/subject"
)

// Version is set at build time.
var Version = "dev"

var out = output.New()

// flag column width in help output.
const widthFlag = 18

// wantsHelp returns true if args contain -h or --help.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
	}
	return false
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return errors.ExitSuccess
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return errors.ExitSuccess
	case "--version", "version":
		fmt.Printf("cruisegrader %s\n", Version)
		return errors.ExitSuccess
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitUsageError
	}

	setupLogging(opts)
	out.SetQuiet(opts.Quiet)

	if len(remaining) == 0 {
		printUsage()
		return errors.ExitSuccess
	}
	cmd := remaining[0]
	cmdArgs := remaining[1:]

	if wantsHelp(cmdArgs) {
		printUsage()
		return errors.ExitSuccess
	}

	switch cmd {
	case "grade":
		return cmdGrade(cmdArgs, opts)
	case "tests":
		return cmdTests(cmdArgs, opts)
	case "inspect":
		return cmdInspect(cmdArgs, opts)
	case "batch":
		return cmdBatch(cmdArgs, opts)
	case "config":
		return cmdConfig(cmdArgs, opts)
	default:
		return usageError("unknown command %q (run 'cruisegrader help')", cmd)
	}
}

// usageError reports a bad invocation and returns its exit code.
func usageError(format string, args ...interface{}) int {
	err := errors.Usagef(format, args...)
	out.ErrorPrefix("%v", err)
	return errors.GetExitCode(err)
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	JSON       bool
	Mode       string
	ConfigPath string
	Quiet      bool
	Verbose    bool
}

// parseGlobalFlags manually parses global flags from arguments.
//
// Manual parsing is used instead of stdlib flag because flags may appear
// anywhere in the argument list, not just before the command.
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{}
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "--json":
			opts.JSON = true
			i++
		case arg == "-q" || arg == "--quiet":
			opts.Quiet = true
			i++
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
			i++
		case arg == "--mode":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--mode requires a value")
			}
			opts.Mode = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--mode="):
			opts.Mode = strings.TrimPrefix(arg, "--mode=")
			i++
		case arg == "--config":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("--config requires a value")
			}
			opts.ConfigPath = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--config="):
			opts.ConfigPath = strings.TrimPrefix(arg, "--config=")
			i++
		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	if err := validateGlobalOptions(opts); err != nil {
		return nil, nil, err
	}
	return opts, remaining, nil
}

// validateGlobalOptions checks that global options are valid.
func validateGlobalOptions(opts *GlobalOptions) error {
	if opts.Mode != "" && opts.Mode != config.ModeStrict && opts.Mode != config.ModeLenient {
		return fmt.Errorf("invalid --mode value %q\n  valid values: %s, %s",
			opts.Mode, config.ModeStrict, config.ModeLenient)
	}
	if opts.Quiet && opts.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

// setupLogging routes diagnostics through a console writer on stderr.
// Warnings and above always show; --verbose opens the debug stream,
// --quiet silences everything.
func setupLogging(opts *GlobalOptions) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	switch {
	case opts.Quiet:
		zerolog.SetGlobalLevel(zerolog.Disabled)
	case opts.Verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// loadConfig resolves the effective configuration: defaults, then the
// --config file if given, then the --mode override on top.
func loadConfig(opts *GlobalOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, warnings, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			out.Warning("%s", w)
		}
		cfg = loaded
	}
	if opts.Mode != "" {
		cfg.Grading.Mode = opts.Mode
	}
	return cfg, nil
}

// subjectIDFor derives a subject identifier from the implementation path:
// the containing directory name, falling back to the file stem.
func subjectIDFor(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir != "." && dir != string(filepath.Separator) {
		return dir
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// cmdGrade grades a single implementation file, optionally with the
// student's own test file as a second argument.
func cmdGrade(args []string, opts *GlobalOptions) int {
	if len(args) < 1 || len(args) > 2 {
		return usageError("usage: cruisegrader grade <CruiseControl.java> [<TestFile.java>]")
	}
	implPath := args[0]
	testPath := ""
	if len(args) == 2 {
		testPath = args[1]
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	subjectID := subjectIDFor(implPath)
	if !opts.JSON {
		out.StageStart(subjectID, "GRADING")
	}
	report := grader.New(cfg).GradeSubject(context.Background(), subjectID, implPath, testPath)

	if opts.JSON {
		printJSON(report)
	} else {
		printGradeReport(report, cfg)
	}

	// A subject the grader could not even set up is an environment problem;
	// every other failure mode is part of the subject's grading outcome.
	if report.Failure == string(subject.ModeEnvError) {
		return errors.ExitEnvironmentError
	}
	return errors.ExitSuccess
}

func printGradeReport(report grading.GradeReport, cfg *config.Config) {
	out.Section("Grading " + report.Subject)
	for _, v := range report.Verdicts {
		desc := requirement.Get(v.Requirement).Description
		if v.Satisfied {
			out.RequirementSatisfied(string(v.Requirement), desc)
		} else {
			reason := ""
			if len(v.Reasons) > 0 {
				reason = v.Reasons[0]
			}
			out.RequirementMissing(string(v.Requirement), desc, reason)
		}
	}
	if report.Failure != "" {
		out.FinalFailure("%s: %s", report.Failure, report.FailureDetail)
	}
	out.SummaryItem("Satisfied", fmt.Sprintf("%d/%d", len(report.Satisfied), len(report.Verdicts)))
	out.Grade(report.Grade, cfg.Grading.MaxGrade)
}

// testsReport is the serialized form of a test-quality analysis.
type testsReport struct {
	TotalMethods int              `json:"total_methods"`
	Covered      []requirement.ID `json:"covered"`
	Missing      []requirement.ID `json:"missing"`
	Unmatched    []string         `json:"unmatched,omitempty"`
}

// cmdTests analyzes the quality of a student's own test file: which
// requirements its test methods cover and with what confidence.
func cmdTests(args []string, opts *GlobalOptions) int {
	if len(args) != 1 {
		return usageError("usage: cruisegrader tests <TestFile.java>")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		out.ErrorPrefix("read test file: %v", err)
		return errors.ExitEnvironmentError
	}

	active := cfg.ActiveIDs()
	report, err := analysis.AnalyzeTests(string(data), active)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	subjectID := subjectIDFor(args[0])
	if len(report.Unmatched) > 0 && cfg.Output.PendingReviewFile != "" {
		if err := analysis.AppendPendingReview(cfg.Output.PendingReviewFile, subjectID, report.Unmatched); err != nil {
			log.Warn().Err(err).Msg("could not record pending-review entries")
		}
	}

	if opts.JSON {
		serialized := testsReport{
			TotalMethods: report.TotalMethods,
			Covered:      report.Covered,
			Missing:      report.Missing,
		}
		for _, m := range report.Unmatched {
			serialized.Unmatched = append(serialized.Unmatched, m.Name)
		}
		printJSON(serialized)
		return errors.ExitSuccess
	}

	out.Section("Test analysis " + subjectID)
	out.SummaryItem("Test methods", fmt.Sprintf("%d", report.TotalMethods))
	for _, id := range report.Covered {
		desc := requirement.Get(id).Description
		for _, m := range report.PerRequirement[id] {
			if m.LogicVerified {
				desc += " (logic verified)"
				break
			}
		}
		out.RequirementSatisfied(string(id), desc)
	}
	for _, id := range report.Missing {
		out.RequirementMissing(string(id), requirement.Get(id).Description, "no test method covers this requirement")
	}
	if len(report.Unmatched) > 0 {
		out.Info("")
		out.Info("Methods matched to no requirement (queued for manual review):")
		var names []string
		for _, m := range report.Unmatched {
			names = append(names, m.Name)
		}
		out.List(names)
	}
	return errors.ExitSuccess
}

// inspectReport is the serialized form of a static implementation analysis.
type inspectReport struct {
	Satisfied []requirement.ID `json:"satisfied"`
	Missing   []requirement.ID `json:"missing"`
}

// cmdInspect runs the static implementation analyzer alone: no build, no
// execution, just the code shapes found in the source.
func cmdInspect(args []string, opts *GlobalOptions) int {
	if len(args) != 1 {
		return usageError("usage: cruisegrader inspect <CruiseControl.java>")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		out.ErrorPrefix("read implementation: %v", err)
		return errors.ExitEnvironmentError
	}

	report := analysis.AnalyzeImplementation(string(data))
	if opts.JSON {
		printJSON(inspectReport{Satisfied: report.Satisfied, Missing: report.Missing})
		return errors.ExitSuccess
	}

	out.Section("Static inspection " + filepath.Base(args[0]))
	for _, id := range report.Satisfied {
		out.RequirementSatisfied(string(id), requirement.Get(id).Description)
	}
	for _, id := range report.Missing {
		out.RequirementMissing(string(id), requirement.Get(id).Description, "no matching code shape found")
	}
	return errors.ExitSuccess
}

// cmdBatch grades every submission directory under the given root.
func cmdBatch(args []string, opts *GlobalOptions) int {
	if len(args) != 1 {
		return usageError("usage: cruisegrader batch <submissions-dir>")
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	summary, err := batch.Run(context.Background(), cfg, args[0])
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	if opts.JSON {
		printJSON(summary)
		return errors.ExitSuccess
	}

	out.Section("Batch summary")
	out.SummaryItem("Students", fmt.Sprintf("%d", summary.TotalStudents))
	out.SummaryItem("Graded", fmt.Sprintf("%d", summary.Successful))
	out.SummaryItem("Average grade", fmt.Sprintf("%.2f", summary.AverageGrade))

	rows := make([][]string, 0, len(summary.Results))
	for _, r := range summary.Results {
		status := fmt.Sprintf("%.2f", r.Grade)
		if !r.Success {
			status = r.Error
		} else if r.Report.Failure != "" {
			status += " (" + r.Report.Failure + ")"
		}
		rows = append(rows, []string{r.StudentID, status})
	}
	out.Println("")
	out.Table([]string{"student", "result"}, rows)
	out.Info("")
	out.Info("Reports written to %s", cfg.Output.ResultsDir)
	return errors.ExitSuccess
}

// cmdConfig handles configuration subcommands; currently only "validate".
func cmdConfig(args []string, opts *GlobalOptions) int {
	if len(args) < 1 || args[0] != "validate" {
		return usageError("usage: cruisegrader config validate [<config.yaml>]")
	}

	path := opts.ConfigPath
	if len(args) == 2 {
		path = args[1]
	}
	if path == "" {
		path = "config.yaml"
	}

	cfg, warnings, err := config.Load(path)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	for _, w := range warnings {
		out.Warning("%s", w)
	}

	out.Info("%s: configuration valid", path)
	out.SummaryItem("Mode", cfg.Grading.Mode)
	out.SummaryItem("Max grade", fmt.Sprintf("%.1f", cfg.Grading.MaxGrade))
	ids := cfg.ActiveIDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	out.SummaryItem("Active requirements", strings.Join(names, ", "))
	return errors.ExitSuccess
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		out.ErrorPrefix("encode report: %v", err)
		return
	}
	out.Print("%s\n", data)
}

func printUsage() {
	w := output.New()

	w.HelpTitle("cruisegrader - automated grading of CruiseControl submissions")

	w.HelpSection("Usage:")
	w.HelpUsage("cruisegrader <command> [args] [flags]")

	w.HelpSection("Commands:")
	w.HelpCommand("grade <impl> [<tests>]", "Build, run, and grade one implementation", 24)
	w.HelpCommand("tests <file>", "Analyze a student test file's coverage", 24)
	w.HelpCommand("inspect <file>", "Static implementation analysis only", 24)
	w.HelpCommand("batch <dir>", "Grade every submission under a directory", 24)
	w.HelpCommand("config validate [file]", "Validate a configuration file", 24)
	w.HelpCommand("version", "Show version information", 24)

	w.HelpSection("Global Flags:")
	w.HelpFlag("--json", "Machine-readable JSON output", widthFlag)
	w.HelpFlag("--mode=<mode>", "Grading mode: strict or lenient", widthFlag)
	w.HelpFlag("--config=<path>", "Configuration file", widthFlag)
	w.HelpFlag("-q, --quiet", "Errors only", widthFlag)
	w.HelpFlag("-v, --verbose", "Per-stage diagnostics", widthFlag)
	w.HelpFlag("-h, --help", "Show this help", widthFlag)

	w.HelpSection("Examples:")
	w.HelpExample("cruisegrader grade student1/CruiseControl.java", "Grade one submission")
	w.HelpExample("cruisegrader batch submissions/ --json", "Grade a class, JSON summary")
	w.HelpExample("cruisegrader tests CruiseControlTest.java", "Check a student's own tests")
	w.Println("")
}
