// Package manifest parses gale.yaml package manifests and discovers
// workspace members.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ManifestLoader for YAML manifests.
type Loader struct {
	logger ports.Logger
}

var _ ports.ManifestLoader = (*Loader)(nil)

func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// manifestFile mirrors the on-disk YAML layout.
type manifestFile struct {
	Name         string                   `yaml:"name"`
	Version      string                   `yaml:"version"`
	Dependencies map[string]dependencyDTO `yaml:"dependencies"`
	Overrides    map[string]string        `yaml:"overrides"`
	Constraints  map[string]string        `yaml:"constraints"`
	Workspace    *workspaceDTO            `yaml:"workspace"`
}

// dependencyDTO accepts the full dependency spelling. The shorthand
// `name: "^1.2"` is handled by a custom unmarshaller.
type dependencyDTO struct {
	Version   string `yaml:"version"`
	Git       string `yaml:"git"`
	Tag       string `yaml:"tag"`
	Branch    string `yaml:"branch"`
	Rev       string `yaml:"rev"`
	Path      string `yaml:"path"`
	Registry  string `yaml:"registry"`
	Workspace bool   `yaml:"workspace"`
}

func (d *dependencyDTO) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Version = value.Value
		return nil
	}
	type raw dependencyDTO
	return value.Decode((*raw)(d))
}

type workspaceDTO struct {
	Members      []string                 `yaml:"members"`
	Exclude      []string                 `yaml:"exclude"`
	Dependencies map[string]dependencyDTO `yaml:"dependencies"`
}

// Parse parses raw manifest bytes. Workspace inheritance markers are kept
// unresolved; Load binds them against the workspace table.
func (l *Loader) Parse(data []byte) (*domain.Manifest, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.Wrap(domain.ErrInvalidManifest, err.Error())
	}
	if file.Name == "" {
		return nil, zerr.Wrap(domain.ErrInvalidManifest, "manifest has no name")
	}

	m := &domain.Manifest{
		Name:         domain.NewInternedString(file.Name),
		Dependencies: map[string]domain.Dependency{},
	}

	if file.Version != "" {
		version, err := semver.NewVersion(file.Version)
		if err != nil {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(domain.ErrInvalidManifest, "invalid version"), "package", file.Name),
				"version", file.Version,
			)
		}
		m.Version = version
	}

	for name, dto := range file.Dependencies {
		dep, err := buildDependency(name, dto)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "in manifest"), "package", file.Name)
		}
		m.Dependencies[name] = dep
	}

	if len(file.Overrides) > 0 {
		m.Overrides = map[string]*semver.Version{}
		for name, raw := range file.Overrides {
			version, err := semver.NewVersion(raw)
			if err != nil {
				werr := zerr.Wrap(domain.ErrInvalidManifest, "invalid override")
				werr = zerr.With(werr, "package", file.Name)
				werr = zerr.With(werr, "override", name)
				return nil, zerr.With(werr, "version", raw)
			}
			m.Overrides[name] = version
		}
	}

	if len(file.Constraints) > 0 {
		m.Constraints = map[string]domain.Constraint{}
		for name, raw := range file.Constraints {
			constraint, err := domain.ParseConstraint(raw)
			if err != nil {
				return nil, zerr.With(
					zerr.With(zerr.Wrap(domain.ErrInvalidManifest, "invalid constraint"), "package", file.Name),
					"constraint", name,
				)
			}
			m.Constraints[name] = constraint
		}
	}

	if file.Workspace != nil {
		config := &domain.WorkspaceConfig{
			Members:      file.Workspace.Members,
			Exclude:      file.Workspace.Exclude,
			Dependencies: map[string]domain.Dependency{},
		}
		for name, dto := range file.Workspace.Dependencies {
			dep, err := buildDependency(name, dto)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "in workspace table"), "package", file.Name)
			}
			if dep.Inherited {
				return nil, zerr.With(
					zerr.Wrap(domain.ErrInvalidManifest, "workspace table entry cannot itself inherit"),
					"dependency", name,
				)
			}
			config.Dependencies[name] = dep
		}
		m.Workspace = config
	}

	return m, nil
}

func buildDependency(name string, dto dependencyDTO) (domain.Dependency, error) {
	dep := domain.Dependency{Name: domain.NewInternedString(name)}

	if dto.Workspace {
		dep.Inherited = true
		return dep, nil
	}

	if dto.Version != "" {
		constraint, err := domain.ParseConstraint(dto.Version)
		if err != nil {
			return domain.Dependency{}, zerr.With(
				zerr.With(zerr.Wrap(domain.ErrInvalidManifest, "invalid constraint"), "dependency", name),
				"constraint", dto.Version,
			)
		}
		dep.Constraint = constraint
	}

	switch {
	case dto.Git != "":
		ref, kind := declaredRef(dto)
		dep.Source = domain.GitSource(dto.Git, kind, ref)
	case dto.Path != "":
		dep.Source = domain.PathSource(dto.Path)
	case dto.Registry != "":
		dep.Source = domain.RegistrySource(dto.Registry)
	default:
		if dto.Tag != "" || dto.Branch != "" || dto.Rev != "" {
			return domain.Dependency{}, zerr.With(
				zerr.Wrap(domain.ErrInvalidManifest, "ref without a git url"),
				"dependency", name,
			)
		}
	}
	return dep, nil
}

func declaredRef(dto dependencyDTO) (ref string, kind domain.RefKind) {
	switch {
	case dto.Rev != "":
		return dto.Rev, domain.RefRevision
	case dto.Branch != "":
		return dto.Branch, domain.RefBranch
	case dto.Tag != "":
		return dto.Tag, domain.RefTag
	default:
		return "", ""
	}
}

// Load parses the manifest in dir and, for workspace roots, discovers and
// loads the member manifests. Returned path sources are absolute.
func (l *Loader) Load(dir string) (*domain.Workspace, error) {
	root, err := l.loadFile(dir)
	if err != nil {
		return nil, err
	}

	if root.Workspace == nil {
		return domain.SinglePackage(root), nil
	}

	ws := &domain.Workspace{
		Root:        dir,
		Config:      *root.Workspace,
		Overrides:   root.Overrides,
		Constraints: root.Constraints,
	}

	memberDirs, err := discoverMembers(dir, root.Workspace)
	if err != nil {
		return nil, err
	}

	// The root manifest is itself a member when it declares a package
	// version or dependencies of its own.
	if root.Version != nil || len(root.Dependencies) > 0 {
		if err := bindInherited(root, root.Workspace); err != nil {
			return nil, err
		}
		ws.Members = append(ws.Members, root)
	}

	seen := map[string]string{root.Name.String(): dir}
	for _, memberDir := range memberDirs {
		member, err := l.loadFile(memberDir)
		if err != nil {
			return nil, err
		}
		if prior, ok := seen[member.Name.String()]; ok {
			werr := zerr.Wrap(domain.ErrDuplicatePackage, "two members share a name")
			werr = zerr.With(werr, "package", member.Name.String())
			werr = zerr.With(werr, "dir", memberDir)
			return nil, zerr.With(werr, "prior", prior)
		}
		seen[member.Name.String()] = memberDir
		if err := bindInherited(member, root.Workspace); err != nil {
			return nil, err
		}
		ws.Members = append(ws.Members, member)
	}

	if len(ws.Members) == 0 {
		return nil, zerr.With(
			zerr.Wrap(domain.ErrInvalidManifest, "workspace has no members"),
			"dir", dir,
		)
	}

	sort.Slice(ws.Members, func(i, j int) bool {
		return ws.Members[i].Name.String() < ws.Members[j].Name.String()
	})
	if l.logger != nil {
		l.logger.Debug(fmt.Sprintf("workspace %s has %d members", dir, len(ws.Members)))
	}
	return ws, nil
}

// loadFile reads and parses one manifest, recording its directory and
// absolutizing its path sources.
func (l *Loader) loadFile(dir string) (*domain.Manifest, error) {
	path := filepath.Join(dir, domain.ManifestFileName)
	data, err := os.ReadFile(path) //nolint:gosec // path is the project's manifest
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrManifestNotFound, err.Error()), "path", path)
	}
	m, err := l.Parse(data)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "loading manifest"), "path", path)
	}
	m.Dir = dir

	for name, dep := range m.Dependencies {
		m.Dependencies[name] = absolutePath(dep, dir)
	}
	if m.Workspace != nil {
		for name, dep := range m.Workspace.Dependencies {
			m.Workspace.Dependencies[name] = absolutePath(dep, dir)
		}
	}
	return m, nil
}

// absolutePath anchors relative path sources at the declaring manifest's
// directory so consumers never depend on the process working directory.
func absolutePath(dep domain.Dependency, dir string) domain.Dependency {
	if dep.Source.Kind == domain.SourcePath && !filepath.IsAbs(dep.Source.Path) {
		dep.Source.Path = filepath.Join(dir, dep.Source.Path)
	}
	return dep
}

// bindInherited replaces workspace-inherited markers with the workspace
// table's constraint and source.
func bindInherited(m *domain.Manifest, config *domain.WorkspaceConfig) error {
	for name, dep := range m.Dependencies {
		if !dep.Inherited {
			continue
		}
		shared, ok := config.Dependencies[name]
		if !ok {
			return zerr.With(
				zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, "dependency not in workspace table"), "package", m.Name.String()),
				"dependency", name,
			)
		}
		dep.Constraint = shared.Constraint
		dep.Source = shared.Source
		m.Dependencies[name] = dep
	}
	return nil
}

// discoverMembers expands the member globs, drops exclusions, and returns
// sorted directories that contain a manifest.
func discoverMembers(root string, config *domain.WorkspaceConfig) ([]string, error) {
	excluded := map[string]bool{}
	for _, pattern := range config.Exclude {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrInvalidManifest, "bad exclude glob"),
				"pattern", pattern,
			)
		}
		for _, match := range matches {
			excluded[match] = true
		}
	}

	var dirs []string
	seen := map[string]bool{}
	for _, pattern := range config.Members {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrInvalidManifest, "bad member glob"),
				"pattern", pattern,
			)
		}
		for _, match := range matches {
			if excluded[match] || seen[match] {
				continue
			}
			info, err := os.Stat(match)
			if err != nil || !info.IsDir() {
				continue
			}
			if _, err := os.Stat(filepath.Join(match, domain.ManifestFileName)); err != nil {
				continue
			}
			seen[match] = true
			dirs = append(dirs, match)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}
