// Package resolver computes resolution graphs from workspace manifests using
// conflict-driven backtracking over a version provider.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"

	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

// Resolver selects one version per package such that every declared
// constraint, override, and graph-wide constraint is satisfied. Given the same
// manifests and provider contents, it always produces the same graph.
type Resolver struct {
	provider ports.VersionProvider
	logger   ports.Logger
}

// Options tune a single resolution run.
type Options struct {
	// Locked biases candidate selection toward previously locked versions.
	// A locked version that still satisfies the active constraints is tried
	// first; one that does not is ignored. Leave nil to always prefer the
	// newest compatible version.
	Locked map[string]*semver.Version
}

// New creates a Resolver.
func New(provider ports.VersionProvider, logger ports.Logger) *Resolver {
	return &Resolver{provider: provider, logger: logger}
}

// Resolve computes the resolution graph for a workspace. All members resolve
// against a single dependency universe, so two members can never disagree on a
// shared package's version. On unsatisfiable requirements it returns a
// *domain.Conflict carrying the shortest requirement set known to be jointly
// unsatisfiable.
func (r *Resolver) Resolve(ctx context.Context, ws *domain.Workspace, opts Options) (*domain.ResolutionGraph, error) {
	run := &run{
		resolver: r,
		ws:       ws,
		opts:     opts,
		depsMemo: map[string][]domain.Dependency{},
		versMemo: map[string][]*semver.Version{},
	}
	if err := run.validateMembers(); err != nil {
		return nil, err
	}
	return run.solve(ctx)
}

// decision is one entry on the explicit decision stack: a package, the
// candidate versions it had when pushed, and which candidate is current.
type decision struct {
	pkg        string
	candidates []*semver.Version
	idx        int
	// reqs is the requirement set active on pkg when the decision was pushed.
	// It only depends on earlier decisions, so it stays valid as long as this
	// decision remains on the stack.
	reqs []domain.Requirement
}

func (d *decision) version() *semver.Version {
	return d.candidates[d.idx]
}

// incompatibility is a learned fact: whenever every package in assignments
// holds the recorded version, doomed has no viable version. Learning these
// keeps backtracking from revisiting combinations already proven dead.
type incompatibility struct {
	assignments map[string]string
	doomed      string
}

type run struct {
	resolver *Resolver
	ws       *domain.Workspace
	opts     Options

	depsMemo map[string][]domain.Dependency
	versMemo map[string][]*semver.Version

	decisions []*decision
	incompats []incompatibility

	// best is the smallest conflict seen so far; reported if the run fails.
	best *domain.Conflict
}

// validateMembers rejects inherited dependencies that were never bound to an
// entry in the workspace dependency table.
func (r *run) validateMembers() error {
	for _, m := range r.ws.Members {
		for _, depName := range m.DependencyNames() {
			dep := m.Dependencies[depName]
			if dep.Inherited && dep.Source.IsZero() && dep.Constraint.IsAny() {
				return zerr.With(
					zerr.With(zerr.Wrap(domain.ErrWorkspaceInheritance, "validating workspace members"), "member", m.Name.String()),
					"dependency", depName,
				)
			}
		}
	}
	return nil
}

func (r *run) solve(ctx context.Context) (*domain.ResolutionGraph, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, zerr.Wrap(err, "resolution cancelled")
		}

		reqs, sources, err := r.activeRequirements(ctx)
		if err != nil {
			return nil, err
		}

		if c := r.findViolation(reqs); c != nil {
			if !r.backtrack(c) {
				return nil, r.best
			}
			continue
		}

		next := r.nextUndecided(reqs)
		if next == "" {
			return r.buildGraph(reqs, sources)
		}

		if c := r.doomed(next, reqs[next]); c != nil {
			if !r.backtrack(c) {
				return nil, r.best
			}
			continue
		}

		d, conflict, err := r.push(ctx, next, reqs[next], sources[next])
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			if !r.backtrack(conflict) {
				return nil, r.best
			}
			continue
		}
		r.decisions = append(r.decisions, d)
	}
}

// activeRequirements derives the full requirement set from the root
// requirements plus the dependencies of every decided package, then overlays
// the constraints and overrides tables. It also returns the declared source
// for every required package.
func (r *run) activeRequirements(ctx context.Context) (map[string][]domain.Requirement, map[string]domain.Source, error) {
	members := map[string]struct{}{}
	for _, m := range r.ws.Members {
		members[m.Name.String()] = struct{}{}
	}

	reqs := map[string][]domain.Requirement{}
	sources := map[string]domain.Source{}

	add := func(req domain.Requirement, src domain.Source) error {
		name := req.Package.String()
		reqs[name] = append(reqs[name], req)
		if src.IsZero() {
			return nil
		}
		if prev, ok := sources[name]; ok && prev != src {
			return zerr.With(
				zerr.With(zerr.Wrap(domain.ErrSourceMismatch, "deriving requirements"), "package", name),
				"sources", []string{prev.String(), src.String()},
			)
		}
		sources[name] = src
		return nil
	}

	for _, m := range r.ws.Members {
		for _, depName := range m.DependencyNames() {
			if _, ok := members[depName]; ok {
				continue
			}
			dep := m.Dependencies[depName]
			if err := add(domain.Requirement{
				Origin:     domain.OriginManifest,
				Requirer:   m.Name.String(),
				Package:    dep.Name,
				Constraint: dep.Constraint,
			}, dep.Source); err != nil {
				return nil, nil, err
			}
		}
	}

	for _, d := range r.decisions {
		deps, err := r.dependencies(ctx, d.pkg, sources[d.pkg], d.version())
		if err != nil {
			return nil, nil, err
		}
		requirer := d.pkg + "@" + d.version().String()
		for _, dep := range deps {
			if _, ok := members[dep.Name.String()]; ok {
				continue
			}
			if err := add(domain.Requirement{
				Origin:     domain.OriginDependency,
				Requirer:   requirer,
				Package:    dep.Name,
				Constraint: dep.Constraint,
			}, dep.Source); err != nil {
				return nil, nil, err
			}
		}
	}

	for _, name := range sortedKeys(r.ws.Constraints) {
		if _, required := reqs[name]; !required {
			continue
		}
		reqs[name] = append(reqs[name], domain.Requirement{
			Origin:     domain.OriginConstraint,
			Requirer:   "constraints",
			Package:    domain.NewInternedString(name),
			Constraint: r.ws.Constraints[name],
		})
	}

	for _, name := range sortedKeys(r.ws.Overrides) {
		if _, required := reqs[name]; !required {
			continue
		}
		reqs[name] = append(reqs[name], domain.Requirement{
			Origin:     domain.OriginOverride,
			Requirer:   "overrides",
			Package:    domain.NewInternedString(name),
			Constraint: domain.ExactConstraint(r.ws.Overrides[name]),
		})
	}

	return reqs, sources, nil
}

// findViolation checks every decided package against the full requirement
// set. A decided version can fall out of range when a later decision
// introduces a tighter requirement.
func (r *run) findViolation(reqs map[string][]domain.Requirement) *domain.Conflict {
	for _, d := range r.decisions {
		for _, req := range reqs[d.pkg] {
			if !req.Constraint.Check(d.version()) {
				return r.conflict(d.pkg, reqs[d.pkg])
			}
		}
	}
	return nil
}

// nextUndecided returns the smallest required package name without a
// decision, which keeps the exploration order deterministic.
func (r *run) nextUndecided(reqs map[string][]domain.Requirement) string {
	decided := map[string]struct{}{}
	for _, d := range r.decisions {
		decided[d.pkg] = struct{}{}
	}
	names := make([]string, 0, len(reqs))
	for name := range reqs {
		if _, ok := decided[name]; !ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return names[0]
}

// push builds the candidate list for pkg and selects the first viable
// candidate. It returns a conflict instead of a decision when no candidate
// satisfies the active requirements.
func (r *run) push(ctx context.Context, pkg string, reqs []domain.Requirement, src domain.Source) (*decision, *domain.Conflict, error) {
	candidates, err := r.candidates(ctx, pkg, src)
	if err != nil {
		return nil, nil, err
	}

	d := &decision{pkg: pkg, candidates: candidates, idx: -1, reqs: reqs}
	if !r.advance(d) {
		c := r.conflict(pkg, reqs)
		c.Candidates = renderVersions(candidates)
		return nil, c, nil
	}
	return d, nil, nil
}

// advance moves a decision to its next viable candidate. A candidate is
// viable when it satisfies the decision's requirement snapshot.
func (r *run) advance(d *decision) bool {
	for d.idx++; d.idx < len(d.candidates); d.idx++ {
		ok := true
		for _, req := range d.reqs {
			if !req.Constraint.Check(d.candidates[d.idx]) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// candidates returns the versions of pkg in preference order: newest first,
// except that a still-valid locked version is promoted to the front. An
// override collapses the list to the pinned version so any disagreement with
// the active requirements surfaces as a conflict that names them.
func (r *run) candidates(ctx context.Context, pkg string, src domain.Source) ([]*semver.Version, error) {
	if ov, ok := r.ws.Overrides[pkg]; ok {
		return []*semver.Version{ov}, nil
	}

	versions, err := r.versions(ctx, pkg, src)
	if err != nil {
		return nil, err
	}

	sorted := make([]*semver.Version, len(versions))
	copy(sorted, versions)
	sort.Sort(sort.Reverse(semver.Collection(sorted)))

	if locked, ok := r.opts.Locked[pkg]; ok {
		for i, v := range sorted {
			if v.Equal(locked) {
				promoted := append([]*semver.Version{v}, append(sorted[:i:i], sorted[i+1:]...)...)
				sorted = promoted
				break
			}
		}
	}
	return sorted, nil
}

// doomed reports whether a learned incompatibility rules pkg out under the
// current assignment.
func (r *run) doomed(pkg string, reqs []domain.Requirement) *domain.Conflict {
	assigned := map[string]string{}
	for _, d := range r.decisions {
		assigned[d.pkg] = d.version().String()
	}
	for _, inc := range r.incompats {
		if inc.doomed != pkg {
			continue
		}
		match := true
		for name, version := range inc.assignments {
			if assigned[name] != version {
				match = false
				break
			}
		}
		if match {
			return r.conflict(pkg, reqs)
		}
	}
	return nil
}

// backtrack learns from a conflict and jumps back to the most recent decision
// that contributed to it. When that decision has no candidates left it falls
// back chronologically, which keeps the search complete. Returns false when no
// decision can be revised, in which case the run is unsolvable and r.best
// holds the conflict to report.
func (r *run) backtrack(c *domain.Conflict) bool {
	r.noteConflict(c)
	r.learn(c)

	involved := map[string]struct{}{c.Package.String(): {}}
	for _, req := range c.Requirements {
		if req.Origin == domain.OriginDependency {
			if name, _, ok := splitRequirer(req.Requirer); ok {
				involved[name] = struct{}{}
			}
		}
	}

	target := -1
	for i := len(r.decisions) - 1; i >= 0; i-- {
		if _, ok := involved[r.decisions[i].pkg]; ok {
			target = i
			break
		}
	}
	if target < 0 {
		return false
	}

	for i := target; i >= 0; i-- {
		r.decisions = r.decisions[:i+1]
		if r.advance(r.decisions[i]) {
			return true
		}
	}
	return false
}

// learn records the assignment combination that doomed the conflict package.
func (r *run) learn(c *domain.Conflict) {
	assignments := map[string]string{}
	for _, req := range c.Requirements {
		if req.Origin != domain.OriginDependency {
			continue
		}
		if name, version, ok := splitRequirer(req.Requirer); ok {
			assignments[name] = version
		}
	}
	if len(assignments) == 0 {
		return
	}
	r.incompats = append(r.incompats, incompatibility{
		assignments: assignments,
		doomed:      c.Package.String(),
	})
}

// noteConflict keeps the conflict with the fewest requirements, which is the
// shortest explanation available if resolution ultimately fails.
func (r *run) noteConflict(c *domain.Conflict) {
	if r.best == nil || len(c.Requirements) < len(r.best.Requirements) {
		r.best = c
	}
}

func (r *run) conflict(pkg string, reqs []domain.Requirement) *domain.Conflict {
	copied := make([]domain.Requirement, len(reqs))
	copy(copied, reqs)
	return &domain.Conflict{
		Package:      domain.NewInternedString(pkg),
		Requirements: copied,
	}
}

// buildGraph freezes the decision stack into an immutable resolution graph.
func (r *run) buildGraph(reqs map[string][]domain.Requirement, sources map[string]domain.Source) (*domain.ResolutionGraph, error) {
	packages := make([]domain.ResolvedPackage, 0, len(r.decisions))
	for _, d := range r.decisions {
		packages = append(packages, domain.ResolvedPackage{
			Name:    domain.NewInternedString(d.pkg),
			Version: d.version(),
			Source:  sources[d.pkg],
			Reason:  r.reason(d),
		})
	}

	var edges []domain.Edge
	for name, pkgReqs := range reqs {
		for _, req := range pkgReqs {
			switch req.Origin {
			case domain.OriginManifest:
				edges = append(edges, domain.Edge{
					From:       domain.NewInternedString(req.Requirer),
					To:         domain.NewInternedString(name),
					Constraint: req.Constraint,
				})
			case domain.OriginDependency:
				requirer, _, _ := splitRequirer(req.Requirer)
				edges = append(edges, domain.Edge{
					From:       domain.NewInternedString(requirer),
					To:         domain.NewInternedString(name),
					Constraint: req.Constraint,
				})
			}
		}
	}

	graph, err := domain.NewResolutionGraph(packages, edges)
	if err != nil {
		return nil, err
	}
	if r.resolver.logger != nil {
		r.resolver.logger.Debug(fmt.Sprintf("resolved %d packages", graph.Len()))
	}
	return graph, nil
}

// reason explains a decision for the resolution trace.
func (r *run) reason(d *decision) domain.SelectionReason {
	if _, ok := r.ws.Overrides[d.pkg]; ok {
		return domain.SelectedOverride
	}
	if locked, ok := r.opts.Locked[d.pkg]; ok && d.version().Equal(locked) {
		return domain.SelectedLocked
	}
	return domain.SelectedHighest
}

func (r *run) versions(ctx context.Context, pkg string, src domain.Source) ([]*semver.Version, error) {
	if cached, ok := r.versMemo[pkg]; ok {
		return cached, nil
	}
	versions, err := r.resolver.provider.Versions(ctx, pkg, src)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "listing versions"), "package", pkg)
	}
	r.versMemo[pkg] = versions
	return versions, nil
}

func (r *run) dependencies(ctx context.Context, pkg string, src domain.Source, v *semver.Version) ([]domain.Dependency, error) {
	key := pkg + "@" + v.String()
	if cached, ok := r.depsMemo[key]; ok {
		return cached, nil
	}
	deps, err := r.resolver.provider.Dependencies(ctx, pkg, src, v)
	if err != nil {
		return nil, zerr.With(
			zerr.With(zerr.Wrap(err, "loading dependencies"), "package", pkg),
			"version", v.String(),
		)
	}
	r.depsMemo[key] = deps
	return deps, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func splitRequirer(requirer string) (name, version string, ok bool) {
	i := strings.LastIndex(requirer, "@")
	if i < 0 {
		return "", "", false
	}
	return requirer[:i], requirer[i+1:], true
}

func renderVersions(versions []*semver.Version) []string {
	out := make([]string, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.String())
	}
	return out
}
