package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"ainotes/internal/config"
)

// CheckLLM verifies that generation is configured. It does not call the API.
func CheckLLM(_ context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set llm.api_key or GEMINI_API_KEY)"}
	}
	if cfg.Model == "" {
		return Result{Name: name, Detail: "model missing"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("configured (model %s)", cfg.Model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// Requirement defines an external binary ainotes can use.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Dependency reports the availability of a Requirement.
type Dependency struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckDependencies reports the external binaries relevant to cfg.
func CheckDependencies(cfg *config.Config) []Dependency {
	if cfg == nil || !cfg.Extract.UsePdftotext {
		return []Dependency{}
	}
	return CheckBinaries([]Requirement{{
		Name:        "pdftotext",
		Command:     cfg.Extract.Pdftotext,
		Description: "Layout-preserving text extraction; the built-in parser is used when missing",
		Optional:    true,
	}})
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Dependency {
	results := make([]Dependency, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Dependency{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
