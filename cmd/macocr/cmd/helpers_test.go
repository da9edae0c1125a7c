package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/macocr/internal/engine"
	"github.com/MeKo-Tech/macocr/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// useStaticEngine swaps the native recognizer for a fixed one.
func useStaticEngine(t *testing.T, eng *engine.Static) *engine.Static {
	t.Helper()
	if eng == nil {
		eng = testutil.StaticEngine()
	}
	prev := newEngine
	newEngine = func(engine.VisionOptions) (engine.Engine, error) { return eng, nil }
	t.Cleanup(func() { newEngine = prev })
	return eng
}

// isolate keeps config discovery away from the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

// executeCommand runs the root command with args and returns its stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag of c and its children to its default so
// tests do not leak state through the shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
	cfgFile = ""
}
