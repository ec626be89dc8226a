// Package schedule drives one analysis run through its five phases: file
// discovery, class collection, the two multi-pass convergence loops, and
// serialization, resolving each pass's execution order from the registered
// inspectors' declared Requires/Produces tags.
package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/javagraph/javagraph/internal/config"
	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/ignore"
	"github.com/javagraph/javagraph/internal/inspector"
	"github.com/javagraph/javagraph/internal/progress"
	"github.com/javagraph/javagraph/internal/resource"
)

// Phase names, also used as the ExecutionProfile.Phase value and in
// ConvergenceWarning diagnostics.
const (
	PhaseFileDiscovery      = "file_discovery"
	PhaseClassCollection    = "class_collection"
	PhaseProjectFileAnalysis = "project_file_analysis"
	PhaseJavaClassAnalysis  = "java_class_analysis"
	PhaseSerialization      = "serialization"
)

// Serializer is the Phase 5 hook; Scheduler calls it once after both
// convergence loops finish. A nil Serializer skips Phase 5, leaving the
// caller free to serialize the repository separately.
type Serializer interface {
	Serialize(repo *graph.Repository, profiles []progress.ExecutionProfile) error
}

// Scheduler owns the resources, registry, and repository for one run and
// drives them through all five phases in order.
type Scheduler struct {
	opts       *config.Options
	registry   *inspector.Registry
	repo       *graph.Repository
	reporter   progress.Reporter
	serializer Serializer

	classLoader *resource.ClassLoader
}

// New builds a Scheduler. reporter may be progress.Silent{}; serializer may
// be nil to skip Phase 5.
func New(opts *config.Options, registry *inspector.Registry, reporter progress.Reporter, serializer Serializer) *Scheduler {
	if reporter == nil {
		reporter = progress.Silent{}
	}

	return &Scheduler{
		opts:        opts,
		registry:    registry,
		repo:        graph.NewRepository(),
		reporter:    reporter,
		serializer:  serializer,
		classLoader: resource.NewClassLoader(resource.NewBlobCache(64 << 20)),
	}
}

// Repository exposes the backing repository, primarily for tests and for
// callers that want to inspect the graph after Run returns.
func (s *Scheduler) Repository() *graph.Repository { return s.repo }

// ClassLoader exposes the run's classloader, primarily so callers can wire
// its blob cache's hit/miss counters into observability.
func (s *Scheduler) ClassLoader() *resource.ClassLoader { return s.classLoader }

// Run drives the five phases in order, returning one ExecutionProfile per
// phase. If ctx is cancelled it stops between phases, between files in
// discovery and collection, and between layers within a multi-pass loop,
// per the run-to-completion invocation semantics (§5): in-flight inspector
// calls are never force-cancelled, only the scheduling of further work.
func (s *Scheduler) Run(ctx context.Context) ([]progress.ExecutionProfile, error) {
	var profiles []progress.ExecutionProfile

	discovery, err := s.runFileDiscovery(ctx)
	if err != nil {
		return profiles, err
	}

	profiles = append(profiles, discovery)

	if ctx.Err() != nil {
		return profiles, ctx.Err()
	}

	collection, err := s.runClassCollection(ctx)
	if err != nil {
		return profiles, err
	}

	profiles = append(profiles, collection)

	if ctx.Err() != nil {
		return profiles, ctx.Err()
	}

	projectFileProfile, err := s.runConvergenceLoop(ctx, PhaseProjectFileAnalysis, inspector.VariantProjectFile)
	if err != nil {
		return profiles, err
	}

	profiles = append(profiles, projectFileProfile)

	if ctx.Err() != nil {
		return profiles, ctx.Err()
	}

	javaClassProfile, err := s.runConvergenceLoop(ctx, PhaseJavaClassAnalysis, inspector.VariantJavaClass)
	if err != nil {
		return profiles, err
	}

	profiles = append(profiles, javaClassProfile)

	if s.serializer != nil {
		serializeProfile := progress.ExecutionProfile{Phase: PhaseSerialization, StartedAt: time.Now()}
		s.reporter.StartPhase(PhaseSerialization, 0)

		if err := s.serializer.Serialize(s.repo, profiles); err != nil {
			return profiles, err
		}

		serializeProfile.FinishedAt = time.Now()
		serializeProfile.Converged = true
		s.reporter.FinishPhase(serializeProfile)
		profiles = append(profiles, serializeProfile)
	}

	return profiles, nil
}

// runFileDiscovery implements Phase 1: walk the project root (and any
// additional jar paths) via the ignore-filtered resolvers, creating one
// ProjectFile node per discovered entry.
func (s *Scheduler) runFileDiscovery(ctx context.Context) (progress.ExecutionProfile, error) {
	profile := progress.ExecutionProfile{Phase: PhaseFileDiscovery, StartedAt: time.Now()}
	s.reporter.StartPhase(PhaseFileDiscovery, 0)

	matcher := ignore.New(s.opts.IgnorePatterns)
	fsResolver := resource.NewFilesystemResolver(s.opts.ProjectRoot, matcher)
	s.classLoader.Register("project_root", fsResolver)

	discoveredAt := time.Now()

	walkErr := fsResolver.Walk(func(e resource.Entry) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		node, createErr := s.repo.GetOrCreateNode(graph.NodeTypeProjectFile, e.Locator.ID())
		if createErr != nil {
			return createErr
		}

		ext := strings.TrimPrefix(filepath.Ext(e.RelativePath), ".")

		s.repo.MergeProperty(node, graph.PropAbsolutePath, e.Locator.Path)
		s.repo.MergeProperty(node, graph.PropRelativePath, e.RelativePath)
		s.repo.MergeProperty(node, graph.PropFileName, filepath.Base(e.RelativePath))
		s.repo.MergeProperty(node, graph.PropExtension, ext)
		s.repo.MergeProperty(node, graph.PropDiscoveredAt, discoveredAt.Format(time.RFC3339Nano))
		s.repo.MergeProperty(node, graph.PropHasSource, ext == "java")
		s.repo.MergeProperty(node, graph.PropHasBinary, ext == "class")

		if ext == "class" {
			internalName := strings.TrimSuffix(e.RelativePath, ".class")
			s.classLoader.Index(internalName, "project_root", e.Locator)
		}

		s.reporter.Tick(1)
		profile.NodesProcessed++

		return nil
	})
	if walkErr != nil {
		profile.FinishedAt = time.Now()
		s.reporter.FinishPhase(profile)

		return profile, walkErr
	}

	for _, jarPath := range s.opts.JarPaths {
		if jarErr := s.indexJar(jarPath); jarErr != nil {
			return profile, jarErr
		}
	}

	profile.FinishedAt = time.Now()
	profile.Passes = 1
	profile.Converged = true
	s.reporter.FinishPhase(profile)

	return profile, nil
}

// indexJar registers a classpath jar's entries with the classloader for
// symbol resolution; jar contents are not themselves turned into
// ProjectFile nodes (only first-party files discovered under ProjectRoot
// are analyzed in Phases 2-4).
func (s *Scheduler) indexJar(jarPath string) error {
	archive, err := resource.OpenArchive(jarPath)
	if err != nil {
		return err
	}

	s.classLoader.Register(jarPath, archive)

	return archive.Walk(func(e resource.Entry) error {
		if strings.HasSuffix(e.RelativePath, ".class") {
			internalName := strings.TrimSuffix(e.RelativePath, ".class")
			s.classLoader.Index(internalName, jarPath, e.Locator)
		}

		return nil
	})
}

// runClassCollection implements Phase 2: every registered Collector runs
// once over every ProjectFile it supports. Collectors are not subject to
// the freshness/fixed-point machinery; they run exactly once per node.
func (s *Scheduler) runClassCollection(ctx context.Context) (progress.ExecutionProfile, error) {
	profile := progress.ExecutionProfile{Phase: PhaseClassCollection, StartedAt: time.Now()}

	collectors := s.registry.CollectorsFor(inspector.VariantProjectFile)
	files := s.repo.AllNodes(graph.NodeTypeProjectFile)

	s.reporter.StartPhase(PhaseClassCollection, len(files)*len(collectors))

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		for _, collector := range collectors {
			if !collector.Supports(file) {
				continue
			}

			if err := collector.Collect(file, s.repo); err != nil {
				return profile, engerr.NewInspectorError(collector.Descriptor().Name, file.ID, err)
			}

			s.reporter.Tick(1)
			profile.NodesProcessed++
		}
	}

	profile.FinishedAt = time.Now()
	profile.Passes = 1
	profile.Converged = true
	s.reporter.FinishPhase(profile)

	return profile, nil
}

// runConvergenceLoop implements the shared Phase 3 / Phase 4 machinery: a
// fixed-point loop over the variant's topologically layered inspectors,
// where a node is re-examined by an inspector whenever it is not yet
// up-to-date for that inspector (§4.F's freshness rule). The loop stops
// when a full pass changes nothing, or after opts.MaxPasses passes, in
// which case it reports an engerr.ConvergenceWarning without failing the
// run.
func (s *Scheduler) runConvergenceLoop(ctx context.Context, phase string, variant inspector.Variant) (progress.ExecutionProfile, error) {
	profile := progress.ExecutionProfile{Phase: phase, StartedAt: time.Now()}
	s.reporter.StartPhase(phase, 0)

	descs := make([]inspector.Descriptor, 0)
	byName := make(map[string]inspector.Inspector)

	for _, insp := range s.registry.InspectorsFor(variant) {
		descs = append(descs, insp.Descriptor())
		byName[insp.Descriptor().Name] = insp
	}

	layers, err := Resolve(descs)
	if err != nil {
		profile.FinishedAt = time.Now()
		s.reporter.FinishPhase(profile)

		return profile, err
	}

	pass := 0
	converged := false

	for {
		pass++

		changed, passErr := s.runPass(ctx, variant, layers, byName, &profile)
		if passErr != nil {
			profile.FinishedAt = time.Now()
			s.reporter.FinishPhase(profile)

			return profile, passErr
		}

		if changed == 0 {
			converged = true
			break
		}

		if ctx.Err() != nil {
			break
		}

		if pass >= s.opts.MaxPasses {
			break
		}
	}

	profile.Passes = pass
	profile.Converged = converged
	profile.FinishedAt = time.Now()
	s.reporter.FinishPhase(profile)

	if !converged && ctx.Err() == nil {
		stillDirty := s.dirtyNodes(variant, byName)
		warning := engerr.NewConvergenceWarning(phase, pass, s.opts.MaxPasses, stillDirty)
		s.repo.RecordError(anyNodeOrPlaceholder(s.repo, variant), warning.Error())
	}

	return profile, nil
}

// runPass executes one pass over every layer in order, running each
// layer's applicable (inspector, node) pairs concurrently bounded by
// opts.Parallelism, and returns the number of nodes whose fingerprint
// changed during the pass.
func (s *Scheduler) runPass(ctx context.Context, variant inspector.Variant, layers []Layer, byName map[string]inspector.Inspector, profile *progress.ExecutionProfile) (int, error) {
	changed := 0

	nodeType := graph.NodeTypeProjectFile
	if variant == inspector.VariantJavaClass {
		nodeType = graph.NodeTypeJavaClass
	}

	nodes := s.repo.AllNodes(nodeType)

	for _, layer := range layers {
		if ctx.Err() != nil {
			return changed, nil
		}

		layerChanged, err := s.runLayer(layer, byName, nodes, profile)
		if err != nil {
			return changed, err
		}

		changed += layerChanged
	}

	return changed, nil
}

// runLayer runs one layer's inspectors against every node they support and
// have not yet converged on, bounded by opts.Parallelism concurrent
// invocations via an errgroup.
func (s *Scheduler) runLayer(layer Layer, byName map[string]inspector.Inspector, nodes []*graph.Node, profile *progress.ExecutionProfile) (int, error) {
	group := new(errgroup.Group)
	group.SetLimit(s.opts.Parallelism)

	changed := 0
	changedCh := make(chan int, len(layer)*len(nodes))

	for _, name := range layer {
		insp, ok := byName[name]
		if !ok {
			continue
		}

		for _, node := range nodes {
			insp := insp
			node := node

			if !insp.Supports(node) {
				continue
			}

			if node.UpToDate(insp.Descriptor().Name) {
				continue
			}

			group.Go(func() error {
				did, err := s.invoke(insp, node)
				if err != nil {
					return err
				}

				if did {
					changedCh <- 1
				}

				s.reporter.Tick(1)
				profile.NodesProcessed++

				return nil
			})
		}
	}

	err := group.Wait()
	close(changedCh)

	for range changedCh {
		changed++
	}

	return changed, err
}

// invoke runs one inspector against one node, recording the execution
// timestamp and detecting whether the node's fingerprint changed. A
// PerInspectorTimeout, when set, is observed but not enforced: the
// invocation always runs to completion (§5); exceeding the budget is only
// recorded as a diagnostic.
func (s *Scheduler) invoke(insp inspector.Inspector, node *graph.Node) (bool, error) {
	before := node.Fingerprint64()
	dec := inspector.NewDecorator(s.repo, node)

	started := time.Now()
	name := insp.Descriptor().Name

	var err error

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("panic: %v", rec)
			}
		}()

		err = insp.Inspect(node, dec)
	}()

	elapsed := time.Since(started)
	if s.opts.PerInspectorTimeout > 0 && elapsed > s.opts.PerInspectorTimeout {
		s.repo.RecordError(node, fmt.Sprintf("inspector %q exceeded its timeout (%s > %s)",
			name, elapsed, s.opts.PerInspectorTimeout))
	}

	if err != nil {
		s.repo.RecordError(node, engerr.NewInspectorError(name, node.ID, err).Error())
	}

	s.repo.MarkExecuted(node, name, time.Now())

	after := node.Fingerprint64()

	return after != before, nil
}

// dirtyNodes lists, in sorted order, the ids of nodes of the given variant
// that are not yet up-to-date for at least one registered inspector,
// attached to the ConvergenceWarning raised when maxPasses is exhausted.
func (s *Scheduler) dirtyNodes(variant inspector.Variant, byName map[string]inspector.Inspector) []string {
	nodeType := graph.NodeTypeProjectFile
	if variant == inspector.VariantJavaClass {
		nodeType = graph.NodeTypeJavaClass
	}

	var dirty []string

	for _, node := range s.repo.AllNodes(nodeType) {
		for _, insp := range byName {
			if insp.Supports(node) && !node.UpToDate(insp.Descriptor().Name) {
				dirty = append(dirty, node.ID)
				break
			}
		}
	}

	sort.Strings(dirty)

	return dirty
}

// anyNodeOrPlaceholder returns a node to attach a phase-level diagnostic
// to (ConvergenceWarning has no single natural owner node); it picks the
// first node of the phase's variant, falling back to a synthetic
// placeholder node if the graph is empty.
func anyNodeOrPlaceholder(repo *graph.Repository, variant inspector.Variant) *graph.Node {
	nodeType := graph.NodeTypeProjectFile
	if variant == inspector.VariantJavaClass {
		nodeType = graph.NodeTypeJavaClass
	}

	if nodes := repo.AllNodes(nodeType); len(nodes) > 0 {
		return nodes[0]
	}

	placeholder, _ := repo.GetOrCreateNode(nodeType, "__run__")

	return placeholder
}
