// Package scanner discovers indexable files in a project directory,
// respecting exclusion patterns, .gitignore rules, and sensitive file
// patterns.
package scanner

import "time"

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path     string    // Relative path from project root
	AbsPath  string    // Absolute path
	Size     int64     // File size in bytes
	ModTime  time.Time // Last modification time
	Language string    // go, typescript, python, etc.
}

// ScanOptions configures scanner behavior.
type ScanOptions struct {
	// RootDir is the project root directory to scan.
	RootDir string

	// ExcludePatterns specifies patterns to exclude in addition to the
	// built-in defaults.
	ExcludePatterns []string

	// RespectGitignore enables .gitignore parsing.
	RespectGitignore bool

	// MaxFileSize is the maximum file size in bytes (0 = 10MB default).
	MaxFileSize int64

	// FollowSymlinks enables following symbolic links (default: false).
	FollowSymlinks bool
}

// ScanResult is streamed from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// languageMap maps file extensions (and special filenames) to languages.
var languageMap = map[string]string{
	".go": "go",

	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",

	".py":  "python",
	".pyw": "python",
	".pyi": "python",

	".html": "html",
	".htm":  "html",
	".css":  "css",
	".scss": "scss",

	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".xml":  "xml",
	".ini":  "ini",

	".md":       "markdown",
	".mdx":      "markdown",
	".markdown": "markdown",
	".rst":      "rst",
	".txt":      "text",

	".sh":   "shell",
	".bash": "shell",
	".zsh":  "shell",

	".rb":    "ruby",
	".rs":    "rust",
	".java":  "java",
	".kt":    "kotlin",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cc":    "cpp",
	".cs":    "csharp",
	".swift": "swift",
	".php":   "php",
	".scala": "scala",
	".ex":    "elixir",
	".exs":   "elixir",
	".hs":    "haskell",
	".lua":   "lua",
	".sql":   "sql",

	"Dockerfile":  "dockerfile",
	"Makefile":    "makefile",
	"makefile":    "makefile",
	"GNUmakefile": "makefile",

	".vue":    "vue",
	".svelte": "svelte",
	".proto":  "protobuf",
}

// DetectLanguage detects the programming language from a file path.
func DetectLanguage(path string) string {
	base := baseName(path)
	if lang, ok := languageMap[base]; ok {
		return lang
	}

	if lang, ok := languageMap[extension(path)]; ok {
		return lang
	}

	return ""
}

func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}

func extension(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' || path[i] == '\\' {
			break
		}
	}
	return ""
}
