// Copyright (c) 2025, DICE Research Group.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package builder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// Runner executes a command. Implementations must honor ctx.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs commands through os/exec and logs their output line by
// line.
type ExecRunner struct {
	// Env is appended to the inherited environment.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	stdout := newLogWriter(name, "stdout", slog.LevelDebug)
	stderr := newLogWriter(name, "stderr", slog.LevelInfo)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	slog.Debug("running command", "command", name, "args", strings.Join(args, " "), "dir", dir)
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s interrupted: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s %s failed: %w", name, firstArg(args), err)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// logWriter forwards complete lines of command output to slog.
type logWriter struct {
	mu      sync.Mutex
	command string
	stream  string
	level   slog.Level
	buf     bytes.Buffer
}

var _ io.Writer = (*logWriter)(nil)

func newLogWriter(command, stream string, level slog.Level) *logWriter {
	return &logWriter{command: command, stream: stream, level: level}
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line; keep it for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *logWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *logWriter) emit(line string) {
	if line == "" {
		return
	}
	slog.Log(context.Background(), w.level, line, "command", w.command, "stream", w.stream)
}
