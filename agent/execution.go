package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"syscall"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultShellTimeout is the wall-clock budget for one shell command.
const defaultShellTimeout = 30 * time.Second

// ShellResult holds what one shell command produced. Output is the merged
// stdout and stderr captured up to completion or the kill, unmodified.
type ShellResult struct {
	Output   string
	TimedOut bool
}

// ExecutionEnvironment abstracts the machine tools act on. The production
// implementation is LocalExecutionEnvironment; tests substitute their own or
// point a local one at a scratch directory.
type ExecutionEnvironment interface {
	// WorkingDirectory returns the directory relative paths resolve against.
	WorkingDirectory() string

	// ReadFile returns the contents of the file at path.
	ReadFile(path string) (string, error)

	// WriteFile replaces the contents of the file at path, creating the file
	// if needed. Parent directories are not created.
	WriteFile(path string, content string) error

	// Glob returns entries under base whose relative path matches pattern,
	// newest first. Patterns use doublestar syntax, so "**" crosses
	// directories. Hidden entries are not matched or descended into.
	Glob(pattern, base string) ([]string, error)

	// Grep scans files under base line by line and returns up to limit hits
	// formatted as path:lineno:text. Unreadable and non-text files are
	// skipped.
	Grep(pattern, base string, limit int) ([]string, error)

	// ExecShell runs command under the shell with the environment's timeout,
	// streaming each output line to onLine when it is non-nil. On timeout the
	// whole process group is killed and the output captured so far is kept.
	// The returned error covers spawn failures only.
	ExecShell(ctx context.Context, command string, onLine func(line string)) (ShellResult, error)
}

// LocalExecutionEnvironment runs tools against the local filesystem and shell.
type LocalExecutionEnvironment struct {
	workingDir   string
	shellTimeout time.Duration
}

// NewLocalExecutionEnvironment creates an environment rooted at workingDir,
// falling back to the process working directory when it is empty.
func NewLocalExecutionEnvironment(workingDir string) *LocalExecutionEnvironment {
	if workingDir == "" {
		workingDir, _ = os.Getwd()
	}
	return &LocalExecutionEnvironment{
		workingDir:   workingDir,
		shellTimeout: defaultShellTimeout,
	}
}

func (e *LocalExecutionEnvironment) WorkingDirectory() string {
	return e.workingDir
}

func (e *LocalExecutionEnvironment) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workingDir, path)
}

func (e *LocalExecutionEnvironment) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(e.resolvePath(path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (e *LocalExecutionEnvironment) WriteFile(path string, content string) error {
	return os.WriteFile(e.resolvePath(path), []byte(content), 0644)
}

func (e *LocalExecutionEnvironment) Glob(pattern, base string) ([]string, error) {
	root := e.resolvePath(base)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, nil
	}

	type match struct {
		display string
		mtime   time.Time
	}
	var matches []match
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		ok, matchErr := doublestar.Match(pattern, rel)
		if matchErr != nil {
			return matchErr
		}
		if ok {
			m := match{display: joinDisplayPath(base, rel)}
			if info, infoErr := d.Info(); infoErr == nil && info.Mode().IsRegular() {
				m.mtime = info.ModTime()
			}
			matches = append(matches, m)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	// Newest first; directories carry a zero mtime and sink to the end.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].mtime.After(matches[j].mtime)
	})
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.display
	}
	return out, nil
}

func (e *LocalExecutionEnvironment) Grep(pattern, base string, limit int) ([]string, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	root := e.resolvePath(base)
	if info, statErr := os.Stat(root); statErr != nil || !info.IsDir() {
		return nil, nil
	}

	var hits []string
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil || !utf8.Valid(data) {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		display := joinDisplayPath(base, filepath.ToSlash(rel))
		for i, line := range splitLines(string(data)) {
			if regex.MatchString(line) {
				text := strings.TrimRightFunc(line, unicode.IsSpace)
				hits = append(hits, fmt.Sprintf("%s:%d:%s", display, i+1, text))
				if len(hits) >= limit {
					return fs.SkipAll
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return hits, nil
}

func (e *LocalExecutionEnvironment) ExecShell(ctx context.Context, command string, onLine func(line string)) (ShellResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.shellTimeout)
	defer cancel()

	cmd := exec.Command("bash", "-c", command)
	cmd.Dir = e.workingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// One pipe carries both streams so lines interleave the way a terminal
	// would show them.
	pr, pw, err := os.Pipe()
	if err != nil {
		return ShellResult{}, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return ShellResult{}, err
	}
	pw.Close()

	var captured strings.Builder
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		reader := bufio.NewReader(pr)
		for {
			chunk, readErr := reader.ReadString('\n')
			if chunk != "" {
				captured.WriteString(chunk)
				if onLine != nil {
					onLine(strings.TrimSuffix(chunk, "\n"))
				}
			}
			if readErr != nil {
				return
			}
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	timedOut := false
	stop := func() {
		timedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		pr.Close()
	}

	select {
	case <-ctx.Done():
		stop()
		<-waitCh
	case <-readDone:
		select {
		case <-ctx.Done():
			stop()
			<-waitCh
		case <-waitCh:
		}
	case <-waitCh:
		select {
		case <-ctx.Done():
			stop()
		case <-readDone:
		}
	}
	<-readDone
	pr.Close()

	return ShellResult{Output: captured.String(), TimedOut: timedOut}, nil
}

// joinDisplayPath prefixes a walk-relative path with the base the caller
// asked about, so results read the way the query was written ("./x.go",
// "src/y.go").
func joinDisplayPath(base, rel string) string {
	return strings.ReplaceAll(base+"/"+rel, "//", "/")
}

// splitLines splits file content into lines: a trailing newline does not
// open a final empty line, and \r\n terminators are normalized away.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
