package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	v1 "github.com/spoolkit/spool/apis/v1"
	"github.com/spoolkit/spool/internal/dest"
	"github.com/spoolkit/spool/internal/source"
	"github.com/spoolkit/spool/pkg/archive"
	"github.com/spoolkit/spool/pkg/spool"
)

// defaultThreshold is the per-entry in-memory buffer size when the job
// does not pick one.
const defaultThreshold = 1 << 20 // 1 MiB

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// ParseBundleJob parses a YAML or JSON job document and validates it.
func ParseBundleJob(data []byte) (v1.BundleJob, error) {
	var job v1.BundleJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.BundleJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.BundleJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

// Runner executes one bundle job: it streams the main entry and every
// side entry through an archive multiplexer and delivers the finished
// container to the configured destination.
type Runner struct {
	logger      *zap.Logger
	job         v1.BundleJob
	registry    *source.Registry
	destination dest.Destination
}

func New(ctx context.Context, logger *zap.Logger, job v1.BundleJob) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	destination, err := buildDestination(ctx, job.Spec.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to build destination: %w", err)
	}

	return &Runner{
		logger:      logger,
		job:         job,
		registry:    BuildRegistry(),
		destination: destination,
	}, nil
}

// Run produces the bundle and delivers it. The container is streamed
// into the destination as it is built; nothing but entry spill files
// ever touches local disk.
func (r *Runner) Run(ctx context.Context) error {
	archiveName := r.archiveName()
	r.logger.Info("building bundle",
		zap.String("archive", archiveName),
		zap.String("destination", r.destination.Name()),
	)

	pr, pw := io.Pipe()
	deliverErr := make(chan error, 1)
	go func() {
		deliverErr <- r.destination.Write(ctx, archiveName, pr)
	}()

	buildErr := r.buildBundle(ctx, pw)
	// Closing the pipe with the build error makes a failed build visible
	// to the destination instead of handing it a truncated container.
	pw.CloseWithError(buildErr)
	writeErr := <-deliverErr

	// Close the destination even when the build failed; use a fresh
	// context so cleanup still runs after cancellation.
	closeErr := r.destination.Close(context.Background())

	if buildErr != nil {
		return fmt.Errorf("failed to build bundle: %w", buildErr)
	}
	if writeErr != nil {
		return fmt.Errorf("failed to deliver bundle: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close destination: %w", closeErr)
	}
	return nil
}

func (r *Runner) archiveName() string {
	if output := r.job.Spec.Output; output != nil && output.ArchiveName != "" {
		return output.ArchiveName
	}
	return r.job.Metadata.Name + ".zip"
}

func (r *Runner) buildBundle(ctx context.Context, out io.Writer) error {
	spoolSpec := r.job.Spec.Spool
	if spoolSpec == nil {
		spoolSpec = &v1.SpoolSpec{}
	}

	factory := spool.NewTempFileFactory(afero.NewOsFs(), spoolSpec.TempDir, r.job.Metadata.Name)

	entries := make([]archive.EntrySpec, 0, len(r.job.Spec.Entries))
	for _, entry := range r.job.Spec.Entries {
		entries = append(entries, entrySpec(entry, spoolSpec))
	}

	mux, err := archive.New(out, r.job.Spec.Main.Name, entries, factory,
		archive.WithLogger(r.logger.Named("mux")))
	if err != nil {
		return fmt.Errorf("failed to create multiplexer: %w", err)
	}
	defer mux.Cleanup()

	if err := r.writeEntry(ctx, mux, r.job.Spec.Main.Name, r.job.Spec.Main.Source); err != nil {
		return errors.Join(err, mux.Close())
	}
	for _, entry := range r.job.Spec.Entries {
		if err := r.writeEntry(ctx, mux, entry.Name, entry.Source); err != nil {
			return errors.Join(err, mux.Close())
		}
	}

	if err := mux.Merge(); err != nil {
		return errors.Join(err, mux.Close())
	}
	return mux.Close()
}

func entrySpec(entry v1.Entry, defaults *v1.SpoolSpec) archive.EntrySpec {
	threshold := entry.Threshold
	if threshold == 0 {
		threshold = defaults.Threshold
	}
	if threshold == 0 {
		threshold = defaultThreshold
	}

	buffer := entry.Buffer
	if buffer == "" {
		buffer = defaults.Buffer
	}

	return archive.EntrySpec{
		Name:      entry.Name,
		Threshold: threshold,
		Codec:     spool.CodecKind(entry.Compression),
		Buffer:    spool.BufferKind(buffer),
	}
}

func (r *Runner) writeEntry(ctx context.Context, mux *archive.Multiplexer, name string, spec v1.SourceSpec) error {
	resolved, err := ResolveSourceSpec(name, spec)
	if err != nil {
		return err
	}

	src, err := r.registry.Create(r.logger.Named("source"), resolved.Kind, resolved.Spec)
	if err != nil {
		return fmt.Errorf("failed to build source for entry %q: %w", name, err)
	}

	reader, err := src.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open source %s for entry %q: %w", src.Name(), name, err)
	}
	defer reader.Close()

	if err := mux.SetActive(name); err != nil {
		return err
	}
	written, err := io.Copy(mux, reader)
	if err != nil {
		return fmt.Errorf("failed to write entry %q from %s: %w", name, src.Name(), err)
	}
	r.logger.Debug("entry written",
		zap.String("entry", name),
		zap.String("source", src.Name()),
		zap.Int64("bytes", written),
	)
	return nil
}

func buildDestination(ctx context.Context, output *v1.OutputSpec) (dest.Destination, error) {
	if output == nil || output.Destination == nil {
		return dest.NewStreamDestination(os.Stdout), nil
	}

	spec := output.Destination
	switch {
	case spec.Stdout != nil:
		return dest.NewStreamDestination(os.Stdout), nil
	case spec.Folder != nil:
		return dest.NewFilesystemDestinationFromPath(spec.Folder.Path)
	case spec.S3 != nil:
		return dest.NewS3Destination(ctx, dest.S3Config{
			Bucket:          spec.S3.Bucket,
			Region:          spec.S3.Region,
			Endpoint:        spec.S3.Endpoint,
			Prefix:          spec.S3.Prefix,
			AccessKeyID:     spec.S3.AccessKeyID,
			SecretAccessKey: spec.S3.SecretAccessKey,
			ForcePathStyle:  spec.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("output destination has no type specified")
	}
}
