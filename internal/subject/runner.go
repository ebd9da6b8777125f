// Package subject prepares, builds, and executes a student implementation
// together with the synthesized harness in an isolated working directory.
//
// All external-process and filesystem failures are caught at this boundary
// and converted into structured Failure values; nothing from the toolchain
// propagates past it.
package subject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// FailureMode tags a runner failure for diagnosis. Timeouts are tagged
// distinctly from ordinary build/run failures even though both zero the
// subject's grade.
type FailureMode string

const (
	ModeEnvError     FailureMode = "ENV_ERROR"
	ModeBuildError   FailureMode = "BUILD_ERROR"
	ModeBuildTimeout FailureMode = "BUILD_TIMEOUT"
	ModeRunError     FailureMode = "RUN_ERROR"
	ModeRunTimeout   FailureMode = "RUN_TIMEOUT"
)

// Failure is a structured runner failure. Detail carries the captured
// diagnostic text (compiler stderr, etc.) verbatim.
type Failure struct {
	Mode   FailureMode
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return string(f.Mode)
	}
	return fmt.Sprintf("%s: %s", f.Mode, f.Detail)
}

// packagePath is the subject's Java package directory, relative to the
// working directory.
var packagePath = filepath.Join("es", "upm", "grise", "profundizacion", "cruiseControl")

// speedometerStub is the fixed collaborator definition supplied to every
// subject. It exposes exactly one query operation and is not graded.
const speedometerStub = `package es.upm.grise.profundizacion.cruiseControl;

public interface Speedometer {

	public int getCurrentSpeed();

}
`

// Toolchain describes the external build and run commands.
// Tests substitute shell stand-ins so no JDK is required.
type Toolchain struct {
	BuildCommand []string // compiler argv prefix; source paths are appended
	RunCommand   []string // runtime argv prefix; the main class is appended
	BuildTimeout time.Duration
	RunTimeout   time.Duration
}

// DefaultToolchain returns the javac/java toolchain with the standard
// 30 s build and 10 s run bounds.
func DefaultToolchain() Toolchain {
	return Toolchain{
		BuildCommand: []string{"javac"},
		RunCommand:   []string{"java", "-cp", "."},
		BuildTimeout: 30 * time.Second,
		RunTimeout:   10 * time.Second,
	}
}

// Runner owns one subject's isolated build context. The working directory
// is exclusive to this runner; Cleanup must run before the directory name
// may be reused for another subject.
type Runner struct {
	workDir   string
	mainClass string
	tc        Toolchain
}

// NewRunner creates a runner over the given working directory. mainClass is
// the fully qualified name of the harness entry point.
func NewRunner(workDir, mainClass string, tc Toolchain) *Runner {
	return &Runner{workDir: workDir, mainClass: mainClass, tc: tc}
}

// Setup prepares the package directory: the subject source (renamed to the
// expected class file), any exception classes shipped alongside it, the
// fixed speedometer stub, and the harness source.
func (r *Runner) Setup(subjectSource, harnessFileName, harnessSource string) *Failure {
	if _, err := os.Stat(subjectSource); err != nil {
		return &Failure{Mode: ModeEnvError, Detail: fmt.Sprintf("subject file not found: %s", subjectSource)}
	}

	pkgDir := filepath.Join(r.workDir, packagePath)
	if err := os.MkdirAll(pkgDir, 0o755); err != nil {
		return &Failure{Mode: ModeEnvError, Detail: fmt.Sprintf("create package directory: %v", err)}
	}

	if err := copyFile(subjectSource, filepath.Join(pkgDir, "CruiseControl.java")); err != nil {
		return &Failure{Mode: ModeEnvError, Detail: fmt.Sprintf("copy subject: %v", err)}
	}

	// Exception classes are part of the exercise scaffolding and ship in
	// the subject's directory. Missing ones surface later as a build
	// error with the compiler's own diagnostic.
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(subjectSource), "*Exception.java"))
	if err == nil {
		for _, m := range matches {
			if err := copyFile(m, filepath.Join(pkgDir, filepath.Base(m))); err != nil {
				return &Failure{Mode: ModeEnvError, Detail: fmt.Sprintf("copy %s: %v", filepath.Base(m), err)}
			}
		}
	}

	if err := os.WriteFile(filepath.Join(pkgDir, "Speedometer.java"), []byte(speedometerStub), 0o644); err != nil {
		return &Failure{Mode: ModeEnvError, Detail: fmt.Sprintf("write speedometer stub: %v", err)}
	}

	if err := os.WriteFile(filepath.Join(pkgDir, harnessFileName), []byte(harnessSource), 0o644); err != nil {
		return &Failure{Mode: ModeEnvError, Detail: fmt.Sprintf("write harness: %v", err)}
	}

	return nil
}

// Build compiles every source file in the package directory, bounded by the
// toolchain's build timeout.
func (r *Runner) Build(ctx context.Context) *Failure {
	sources, err := filepath.Glob(filepath.Join(r.workDir, packagePath, "*.java"))
	if err != nil || len(sources) == 0 {
		return &Failure{Mode: ModeEnvError, Detail: "no source files in package directory"}
	}

	args := make([]string, 0, len(r.tc.BuildCommand)+len(sources))
	args = append(args, r.tc.BuildCommand...)
	for _, s := range sources {
		rel, relErr := filepath.Rel(r.workDir, s)
		if relErr != nil {
			rel = s
		}
		args = append(args, rel)
	}

	start := time.Now()
	_, stderr, err := r.execute(ctx, args, r.tc.BuildTimeout)
	log.Debug().Str("stage", "build").Dur("elapsed", time.Since(start)).Msg("toolchain invocation finished")

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return &Failure{Mode: ModeBuildTimeout, Detail: fmt.Sprintf("build exceeded %s", r.tc.BuildTimeout)}
		}
		return &Failure{Mode: ModeBuildError, Detail: stderr}
	}
	return nil
}

// Run executes the harness main class, bounded by the run timeout, and
// returns captured stdout. Output from a timed-out run is discarded: once
// the kill fires, partial output is not trusted.
func (r *Runner) Run(ctx context.Context) (string, *Failure) {
	args := make([]string, 0, len(r.tc.RunCommand)+1)
	args = append(args, r.tc.RunCommand...)
	args = append(args, r.mainClass)

	start := time.Now()
	stdout, stderr, err := r.execute(ctx, args, r.tc.RunTimeout)
	log.Debug().Str("stage", "run").Dur("elapsed", time.Since(start)).Msg("harness execution finished")

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", &Failure{Mode: ModeRunTimeout, Detail: fmt.Sprintf("run exceeded %s", r.tc.RunTimeout)}
		}
		return "", &Failure{Mode: ModeRunError, Detail: stderr}
	}
	return stdout, nil
}

// Cleanup removes everything Setup and Build wrote into the working
// directory. It runs regardless of which stage failed; a leftover package
// tree would contaminate the next run that reuses the directory name.
func (r *Runner) Cleanup() {
	pkgRoot := filepath.Join(r.workDir, "es")
	if err := os.RemoveAll(pkgRoot); err != nil {
		log.Warn().Err(err).Str("dir", pkgRoot).Msg("cleanup failed")
	}
}

// execute runs one external command under a deadline. The process is killed
// (not gracefully shut down) when the deadline fires.
func (r *Runner) execute(ctx context.Context, args []string, timeout time.Duration) (stdout, stderr string, err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.workDir

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", "", context.DeadlineExceeded
	}
	if runErr != nil {
		detail := strings.TrimSpace(errBuf.String())
		if detail == "" {
			detail = runErr.Error()
		}
		return outBuf.String(), detail, runErr
	}
	return outBuf.String(), strings.TrimSpace(errBuf.String()), nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
