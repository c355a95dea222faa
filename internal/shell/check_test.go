package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"ok.nu":     "alias l [x] { ls $x }\nl '*.go'\ncd nowhere\n",
		"clash.nu":  "echo start\nalias clash [a] { echo 1 | str from -d $a | range $a }\nfrobnicate 1\n",
		"syntax.nu": "echo {\n",
	}
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.nu"))

	c, err := Check(context.Background(), paths, 2, nil)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if c.ErrorCount() != 3 {
		t.Errorf("Expected 3 errors, got %d:\n%s", c.ErrorCount(), c.Format())
	}

	out := c.Format()
	for _, want := range []string{"clash.nu:2:", "TYPE_CONFLICT", "syntax.nu:", "expected '}'", "cannot read", "clash.nu:3:1: warning", "1 warning(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ok.nu") {
		t.Errorf("Expected ok.nu to be clean, got:\n%s", out)
	}
}

func TestCheckSourceSeesEarlierAliases(t *testing.T) {
	src := "alias round-to [num digits] { echo $num | str from -d $digits }\nround-to 3.45 a\nround-to 3.45 2\n"
	errs := CheckSource(src, "r.nu", nil).Errors
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "Type Error") {
		t.Errorf("Expected one call-site type error, got %v", errs)
	}
}

func TestCheckCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Check(ctx, []string{"a.nu", "b.nu"}, 1, nil); err == nil {
		t.Error("Expected cancelled check to fail")
	}
}
