package resolve

import (
	"encoding/json"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Manifest is the normalized view of a package manifest (package.json or
// pyproject.toml).
type Manifest struct {
	Dir        string
	Name       string
	Main       string
	Workspaces []string // sub-package globs relative to Dir
}

// rawPackageJSON mirrors the package.json fields we care about. "workspaces"
// is either an array of globs or an object with a "packages" array.
type rawPackageJSON struct {
	Name       string          `json:"name"`
	Main       string          `json:"main"`
	Module     string          `json:"module"`
	Workspaces json.RawMessage `json:"workspaces"`
}

type rawPyproject struct {
	Project struct {
		Name string `toml:"name"`
	} `toml:"project"`
	Tool struct {
		UV struct {
			Workspace struct {
				Members []string `toml:"members"`
			} `toml:"workspace"`
		} `toml:"uv"`
	} `toml:"tool"`
}

type rawPnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// loadManifest parses the manifest file in dir, if any. Returns nil when the
// directory has no recognizable manifest or it cannot be parsed.
func loadManifest(dir string) *Manifest {
	if m := loadPackageJSON(dir); m != nil {
		return m
	}
	return loadPyproject(dir)
}

func loadPackageJSON(dir string) *Manifest {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}

	var raw rawPackageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	m := &Manifest{Dir: dir, Name: raw.Name, Main: raw.Main}
	if m.Main == "" {
		m.Main = raw.Module
	}

	if len(raw.Workspaces) > 0 {
		var globs []string
		if err := json.Unmarshal(raw.Workspaces, &globs); err == nil {
			m.Workspaces = globs
		} else {
			var obj struct {
				Packages []string `json:"packages"`
			}
			if err := json.Unmarshal(raw.Workspaces, &obj); err == nil {
				m.Workspaces = obj.Packages
			}
		}
	}

	// pnpm declares workspaces in a sibling yaml file instead.
	if len(m.Workspaces) == 0 {
		m.Workspaces = loadPnpmWorkspaces(dir)
	}

	return m
}

func loadPnpmWorkspaces(dir string) []string {
	data, err := os.ReadFile(filepath.Join(dir, "pnpm-workspace.yaml"))
	if err != nil {
		return nil
	}

	var raw rawPnpmWorkspace
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil
	}
	return raw.Packages
}

func loadPyproject(dir string) *Manifest {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return nil
	}

	var raw rawPyproject
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil
	}

	return &Manifest{
		Dir:        dir,
		Name:       raw.Project.Name,
		Workspaces: raw.Tool.UV.Workspace.Members,
	}
}

// tsconfigMapping holds the compilerOptions.paths wildcard table of one
// tsconfig.json, with BaseDir already combined with baseUrl.
type tsconfigMapping struct {
	BaseDir string
	Paths   map[string][]string
}

type rawTsconfig struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// loadTsconfig parses dir/tsconfig.json. Returns nil when absent, malformed,
// or without a paths table.
func loadTsconfig(dir string) *tsconfigMapping {
	data, err := os.ReadFile(filepath.Join(dir, "tsconfig.json"))
	if err != nil {
		return nil
	}

	var raw rawTsconfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if len(raw.CompilerOptions.Paths) == 0 {
		return nil
	}

	base := dir
	if raw.CompilerOptions.BaseURL != "" {
		base = filepath.Join(dir, raw.CompilerOptions.BaseURL)
	}

	return &tsconfigMapping{BaseDir: base, Paths: raw.CompilerOptions.Paths}
}
