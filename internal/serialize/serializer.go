package serialize

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/javagraph/javagraph/internal/config"
	"github.com/javagraph/javagraph/internal/engerr"
	"github.com/javagraph/javagraph/internal/graph"
	"github.com/javagraph/javagraph/internal/progress"
	"github.com/javagraph/javagraph/pkg/persist"
)

const snapshotBasename = "graph"

// FileSerializer implements schedule.Serializer, writing the run's
// snapshot to Options.Output.Dir using the codec named by
// Options.Output.Format via the shared pkg/persist save/load helpers.
type FileSerializer struct {
	opts      *config.Options
	startedAt time.Time
}

// NewFileSerializer builds a FileSerializer. startedAt should be the wall
// time the scheduler's Run call began, used as RunDoc.StartedAt.
func NewFileSerializer(opts *config.Options, startedAt time.Time) *FileSerializer {
	return &FileSerializer{opts: opts, startedAt: startedAt}
}

// Serialize implements schedule.Serializer.
func (f *FileSerializer) Serialize(repo *graph.Repository, profiles []progress.ExecutionProfile) error {
	if err := os.MkdirAll(f.opts.Output.Dir, 0o755); err != nil {
		return engerr.NewIoError(f.opts.Output.Dir, err)
	}

	doc := BuildDocument(f.opts.ProjectRoot, f.startedAt, time.Now(), profiles, repo)

	codec, err := codecFor(f.opts.Output.Format)
	if err != nil {
		return err
	}

	return persist.SaveState(f.opts.Output.Dir, snapshotBasename, codec, doc)
}

// Load restores a previously serialized Document from dir, using format to
// select the codec ("json" or "yaml", matching Options.Output.Format).
func Load(dir, format string) (Document, error) {
	var doc Document

	codec, err := codecFor(format)
	if err != nil {
		return doc, err
	}

	err = persist.LoadState(dir, snapshotBasename, codec, &doc)

	return doc, err
}

// Path returns the file path Serialize/Load use for a given dir/format,
// useful for callers (the CLI) that want to print or check it directly.
func Path(dir, format string) (string, error) {
	codec, err := codecFor(format)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, snapshotBasename+codec.Extension()), nil
}

func codecFor(format string) (persist.Codec, error) {
	switch format {
	case "json", "":
		return persist.NewJSONCodec(), nil
	case "yaml":
		return persist.NewYAMLCodec(), nil
	default:
		return nil, engerr.NewConfigurationError("output.format", fmt.Errorf("unsupported format %q", format))
	}
}
