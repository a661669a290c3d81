package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// imageEnv collects the KEY=value pairs of every ENV instruction in the
// Dockerfile at path, following line continuations.
func imageEnv(t *testing.T, path string) map[string]string {
	t.Helper()

	f, err := os.Open(path) //nolint:gosec // Test fixture path
	if err != nil {
		t.Fatalf("failed to open Dockerfile: %v", err)
	}
	defer f.Close()

	env := make(map[string]string)
	inEnv := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "ENV ") {
			inEnv = true
			line = strings.TrimPrefix(line, "ENV ")
		} else if !inEnv {
			continue
		}
		cont := strings.HasSuffix(line, `\`)
		for _, pair := range strings.Fields(strings.TrimSuffix(line, `\`)) {
			if k, v, ok := strings.Cut(pair, "="); ok {
				env[k] = v
			}
		}
		inEnv = cont
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("failed to read Dockerfile: %v", err)
	}
	return env
}

func TestDockerfileEnv(t *testing.T) {
	t.Parallel()

	got := imageEnv(t, filepath.Join("..", "..", "Dockerfile"))
	want := map[string]string{
		"PYTHONUNBUFFERED":   "1",
		"CHROME_DRIVER_PATH": "/usr/bin/chromedriver",
		"COOKIES_CACHE_FILE": "/app/cookies_cache.json",
		"DATABASE_URL":       "sqlite:////app/data/parser.db",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("image env mismatch (-want +got):\n%s", diff)
	}
}
