package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"weld/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new weld project",
	Long: `Initialize a weld project by writing a weld.toml and, when missing, a starter
entry module. If [path|name] is omitted, initializes the current directory. A
non-existing name creates the directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("entry", "src/index.ts", "entry module to configure")
}

const starterEntry = `import logo from "./logo.svg";

export function mount(el) {
  el.innerHTML = logo;
}
`

const starterLogo = `<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"><circle cx="8" cy="8" r="7"/></svg>
`

func runInit(cmd *cobra.Command, args []string) error {
	entry, err := cmd.Flags().GetString("entry")
	if err != nil {
		return err
	}
	entry = filepath.ToSlash(filepath.Clean(strings.TrimSpace(entry)))
	if entry == "." || entry == "" || filepath.IsAbs(entry) || strings.HasPrefix(entry, "../") {
		return fmt.Errorf("invalid --entry %q: must be a path inside the project", entry)
	}

	target := "."
	if len(args) > 0 && args[0] != "" {
		target = args[0]
	}
	target, err = filepath.Abs(target)
	if err != nil {
		return err
	}
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	for _, name := range config.FileNames {
		if _, err := os.Stat(filepath.Join(target, name)); err == nil {
			return fmt.Errorf("project already initialized: %s exists", filepath.Join(target, name))
		}
	}

	data, err := config.Template(entry)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	var created []string
	if err := os.WriteFile(filepath.Join(target, config.FileNames[0]), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", config.FileNames[0], err)
	}
	created = append(created, config.FileNames[0])

	entryPath := filepath.Join(target, filepath.FromSlash(entry))
	if _, err := os.Stat(entryPath); errors.Is(err, os.ErrNotExist) {
		if err := writeStarter(entryPath, starterEntry); err != nil {
			return err
		}
		if err := writeStarter(filepath.Join(filepath.Dir(entryPath), "logo.svg"), starterLogo); err != nil {
			return err
		}
		created = append(created, entry, filepath.ToSlash(filepath.Join(filepath.Dir(entry), "logo.svg")))
	} else {
		created = append(created, entry+" (existing)")
	}

	added, err := ensureIgnored(filepath.Join(target, ".gitignore"), config.DefaultOutDir+"/", ".weld/")
	if err != nil {
		return err
	}
	if added {
		created = append(created, ".gitignore")
	}

	_, _ = fmt.Fprintf(out, "Initialized weld project in %s\n", displayPath(target))
	for _, c := range created {
		_, _ = fmt.Fprintf(out, "  - %s\n", c)
	}
	return nil
}

func writeStarter(path, content string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ensureIgnored appends the missing patterns to a .gitignore, creating it
// when absent. It reports whether the file changed.
func ensureIgnored(path string, patterns ...string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	have := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		have[strings.TrimSpace(line)] = true
	}
	var buf bytes.Buffer
	for _, p := range patterns {
		if !have[p] {
			buf.WriteString(p + "\n")
		}
	}
	if buf.Len() == 0 {
		return false, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		_, _ = f.WriteString("\n")
	}
	if _, err := io.Copy(f, &buf); err != nil {
		_ = f.Close()
		return false, err
	}
	return true, f.Close()
}
