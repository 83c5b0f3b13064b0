package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collect drains the scan channel into a path-keyed map.
func collect(t *testing.T, results <-chan ScanResult) map[string]*FileInfo {
	t.Helper()
	files := make(map[string]*FileInfo)
	for r := range results {
		require.NoError(t, r.Error)
		files[filepath.ToSlash(r.File.Path)] = r.File
	}
	return files
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_DiscoversFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "docs/readme.md", "# readme\n")

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{RootDir: dir})
	require.NoError(t, err)

	files := collect(t, results)
	require.Len(t, files, 2)
	assert.Equal(t, "go", files["main.go"].Language)
	assert.Equal(t, "markdown", files["docs/readme.md"].Language)
	assert.Equal(t, filepath.Join(dir, "main.go"), files["main.go"].AbsPath)
}

func TestScan_SkipsIndexDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, ".charlie_index/index_meta.json", "{}")
	writeFile(t, dir, ".codeflow_index/index_meta.json", "{}")
	writeFile(t, dir, "node_modules/pkg/index.js", "x")
	writeFile(t, dir, ".git/config", "x")

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{RootDir: dir})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Len(t, files, 1)
	assert.Contains(t, files, "main.go")
}

func TestScan_SkipsBinaryFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "text.go", "package main\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.dat"), []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}, 0o644))

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{RootDir: dir})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Contains(t, files, "text.go")
	assert.NotContains(t, files, "blob.dat")
}

func TestScan_SkipsSensitiveFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, ".env", "SECRET=x\n")
	writeFile(t, dir, ".env.local", "SECRET=x\n")
	writeFile(t, dir, "server.pem", "-----BEGIN CERT-----\n")
	writeFile(t, dir, "db_credentials.txt", "hunter2\n")

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{RootDir: dir})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Len(t, files, 1)
	assert.Contains(t, files, "main.go")
}

func TestScan_RespectsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".gitignore", "*.log\ntmp/\n")
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "debug.log", "line\n")
	writeFile(t, dir, "tmp/scratch.txt", "x\n")

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{
		RootDir:          dir,
		RespectGitignore: true,
	})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Contains(t, files, "main.go")
	assert.Contains(t, files, ".gitignore")
	assert.NotContains(t, files, "debug.log")
	assert.NotContains(t, files, "tmp/scratch.txt")
}

func TestScan_NestedGitignore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sub/.gitignore", "*.gen.go\n")
	writeFile(t, dir, "sub/code.go", "package sub\n")
	writeFile(t, dir, "sub/code.gen.go", "package sub\n")
	writeFile(t, dir, "top.gen.go", "package main\n")

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{
		RootDir:          dir,
		RespectGitignore: true,
	})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Contains(t, files, "sub/code.go")
	assert.NotContains(t, files, "sub/code.gen.go")
	assert.Contains(t, files, "top.gen.go", "nested gitignore does not apply above its directory")
}

func TestScan_CustomExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.go", "package main\n")
	writeFile(t, dir, "testdata/fixture.json", "{}")

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{
		RootDir:         dir,
		ExcludePatterns: []string{"**/testdata/**"},
	})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Contains(t, files, "keep.go")
	assert.NotContains(t, files, "testdata/fixture.json")
}

func TestScan_MaxFileSize(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "ok\n")
	big := make([]byte, 2048)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644))

	s, err := New()
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), &ScanOptions{
		RootDir:     dir,
		MaxFileSize: 1024,
	})
	require.NoError(t, err)

	files := collect(t, results)
	assert.Contains(t, files, "small.txt")
	assert.NotContains(t, files, "big.txt")
}

func TestScan_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, dir, filepath.Join("pkg", "file"+string(rune('a'+i%26))+".go"), "package pkg\n")
	}

	s, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := s.Scan(ctx, &ScanOptions{RootDir: dir})
	require.NoError(t, err)

	// Channel must close even with a cancelled context.
	count := 0
	for range results {
		count++
	}
	assert.LessOrEqual(t, count, 50)
}

func TestScan_InvalidRoot(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), &ScanOptions{RootDir: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"src/app.tsx", "typescript"},
		{"script.py", "python"},
		{"README.md", "markdown"},
		{"Dockerfile", "dockerfile"},
		{"Makefile", "makefile"},
		{"unknown.zzz", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectLanguage(tt.path), "path %q", tt.path)
	}
}
