// Package techdetect builds a best-effort inventory of the languages,
// frameworks, libraries and tools a repository uses, from dependency
// manifests and source imports. The output is a signal for prompting, not
// ground truth.
package techdetect

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Inventory groups detected technology names into four buckets. Each bucket
// is deduplicated and sorted.
type Inventory struct {
	Languages  []string `json:"languages"`
	Frameworks []string `json:"frameworks"`
	Libraries  []string `json:"libraries"`
	Tools      []string `json:"tools"`
}

// JSON renders the inventory as indented JSON for embedding into prompts
// and the technology summary chunk.
func (inv Inventory) JSON() string {
	b, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// manifestLanguages maps dependency manifest filenames to the ecosystem
// language they signal.
var manifestLanguages = map[string]string{
	"requirements.txt": "python",
	"package.json":     "javascript",
	"pom.xml":          "java",
	"Gemfile":          "ruby",
	"build.gradle":     "java",
	"go.mod":           "go",
	"Cargo.toml":       "rust",
}

// pythonImports maps import names found in .py files to the technology they
// indicate, split by whether the hit counts as a framework or a library.
var pythonImports = []struct {
	Import    string
	Name      string
	Framework bool
}{
	{"flask", "Flask", true},
	{"django", "Django", true},
	{"fastapi", "FastAPI", true},
	{"tensorflow", "TensorFlow", false},
	{"torch", "PyTorch", false},
	{"sklearn", "scikit-learn", false},
	{"pandas", "Pandas", false},
	{"numpy", "NumPy", false},
}

// jsFrameworks maps package.json dependency names to well-known frontend
// frameworks.
var jsFrameworks = map[string]string{
	"react":         "React",
	"react-dom":     "React",
	"vue":           "Vue.js",
	"angular":       "Angular",
	"@angular/core": "Angular",
}

// Detector scans a repository tree for technology signals.
type Detector struct {
	logger *slog.Logger
}

func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger}
}

// Detect walks root and returns the technology inventory. A parse failure on
// any single manifest is logged and skipped; it never aborts detection of
// the others. Running Detect twice on an unchanged tree yields identical
// inventories.
func (d *Detector) Detect(root string) Inventory {
	languages := map[string]bool{}
	frameworks := map[string]bool{}
	libraries := map[string]bool{}
	tools := map[string]bool{}

	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		name := entry.Name()

		if lang, ok := manifestLanguages[name]; ok {
			languages[lang] = true
			switch name {
			case "requirements.txt":
				if err := d.parseRequirements(path, libraries); err != nil {
					d.logger.Warn("Failed to parse requirements.txt", "path", path, "error", err)
				}
			case "package.json":
				if err := d.parsePackageJSON(path, frameworks, libraries); err != nil {
					d.logger.Warn("Failed to parse package.json", "path", path, "error", err)
				}
			}
		}

		if strings.HasSuffix(name, ".py") {
			d.scanPythonImports(path, frameworks, libraries)
		}
		return nil
	})

	return Inventory{
		Languages:  sortedKeys(languages),
		Frameworks: sortedKeys(frameworks),
		Libraries:  sortedKeys(libraries),
		Tools:      sortedKeys(tools),
	}
}

// parseRequirements records one library per non-comment line, stripping
// version pins like "flask==2.0" or "numpy>=1.21".
func (d *Detector) parseRequirements(path string, libraries map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lib := line
		for _, pin := range []string{"==", ">=", "<=", "~=", ">", "<"} {
			if i := strings.Index(lib, pin); i >= 0 {
				lib = lib[:i]
			}
		}
		if lib = strings.TrimSpace(lib); lib != "" {
			libraries[lib] = true
		}
	}
	return nil
}

// parsePackageJSON records dependencies and devDependencies as libraries and
// flags well-known frontend frameworks.
func (d *Detector) parsePackageJSON(path string, frameworks, libraries map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var manifest struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return err
	}
	for dep := range manifest.Dependencies {
		libraries[dep] = true
		if fw, ok := jsFrameworks[dep]; ok {
			frameworks[fw] = true
		}
	}
	for dep := range manifest.DevDependencies {
		libraries[dep] = true
	}
	return nil
}

// scanPythonImports attributes known imports to frameworks or libraries.
// Read errors exclude the file silently.
func (d *Detector) scanPythonImports(path string, frameworks, libraries map[string]bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	content := string(data)
	for _, imp := range pythonImports {
		if strings.Contains(content, "import "+imp.Import) ||
			strings.Contains(content, "from "+imp.Import) {
			if imp.Framework {
				frameworks[imp.Name] = true
			} else {
				libraries[imp.Name] = true
			}
		}
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
