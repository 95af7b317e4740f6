// Package v1 holds the versioned bundle job document types.
package v1

// BundleJob is the top-level job document.
type BundleJob struct {
	Kind     string        `yaml:"kind" json:"kind" validate:"required,eq=BundleJob"`
	Metadata Metadata      `yaml:"metadata" json:"metadata"`
	Spec     BundleJobSpec `yaml:"spec" json:"spec" validate:"required"`
}

type Metadata struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

type BundleJobSpec struct {
	// Main is the entry streamed straight to the container as it is
	// produced.
	Main MainEntry `yaml:"main" json:"main" validate:"required"`

	// Entries are buffered independently and merged after the main entry
	// completes, in the order listed here.
	Entries []Entry `yaml:"entries,omitempty" json:"entries,omitempty" validate:"dive"`

	// Spool tunes the buffering behavior shared by all entries.
	Spool *SpoolSpec `yaml:"spool,omitempty" json:"spool,omitempty"`

	// Output configures where the finished bundle goes (default: stdout).
	Output *OutputSpec `yaml:"output,omitempty" json:"output,omitempty"`
}

// MainEntry names the passthrough entry and its content source.
type MainEntry struct {
	Name   string     `yaml:"name" json:"name" validate:"required"`
	Source SourceSpec `yaml:"source" json:"source" validate:"required"`
}

// Entry is one buffered side entry.
type Entry struct {
	Name   string     `yaml:"name" json:"name" validate:"required"`
	Source SourceSpec `yaml:"source" json:"source" validate:"required"`

	// Threshold is the in-memory buffer size in bytes before the entry
	// spills to disk. Zero inherits the spool default.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty" validate:"gte=0"`

	// Compression stores the entry's buffered data compressed while it
	// waits to be merged: "gzip", "zstd" or "none".
	Compression string `yaml:"compression,omitempty" json:"compression,omitempty" validate:"omitempty,oneof=gzip zstd none"`

	// Buffer selects the in-memory buffer implementation: "slice" or
	// "mmap".
	Buffer string `yaml:"buffer,omitempty" json:"buffer,omitempty" validate:"omitempty,oneof=slice mmap"`
}

// SourceSpec configures entry content (exactly one field should be set).
type SourceSpec struct {
	Inline *InlineSource `yaml:"inline,omitempty" json:"inline,omitempty"`
	File   *FileSource   `yaml:"file,omitempty" json:"file,omitempty"`
	Exec   *ExecSource   `yaml:"exec,omitempty" json:"exec,omitempty"`
}

type InlineSource struct {
	Value string `yaml:"value" json:"value"`
}

type FileSource struct {
	Path string `yaml:"path" json:"path" validate:"required"`
}

type ExecSource struct {
	Program    []string          `yaml:"program" json:"program" validate:"required,min=1"`
	WorkingDir string            `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`
	Timeout    string            `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env        map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// SpoolSpec tunes spill behavior for all side entries.
type SpoolSpec struct {
	// TempDir hosts spill files. Empty falls back to the system temp
	// directory.
	TempDir string `yaml:"temp_dir,omitempty" json:"temp_dir,omitempty"`

	// Threshold is the default per-entry buffer size in bytes.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty" validate:"gte=0"`

	// Buffer is the default buffer implementation for entries that do
	// not pick their own.
	Buffer string `yaml:"buffer,omitempty" json:"buffer,omitempty" validate:"omitempty,oneof=slice mmap"`
}

// OutputSpec configures the finished bundle's destination and name.
type OutputSpec struct {
	// ArchiveName overrides the bundle file name. Empty derives it from
	// the job name.
	ArchiveName string `yaml:"archive_name,omitempty" json:"archive_name,omitempty"`

	Destination *DestinationSpec `yaml:"destination,omitempty" json:"destination,omitempty"`
}

// DestinationSpec configures the destination (one field should be set).
type DestinationSpec struct {
	Stdout *StdoutSpec `yaml:"stdout,omitempty" json:"stdout,omitempty"`
	Folder *FolderSpec `yaml:"folder,omitempty" json:"folder,omitempty"`
	S3     *S3Spec     `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// StdoutSpec streams the bundle to standard output (no options).
type StdoutSpec struct{}

// FolderSpec writes the bundle into a directory.
type FolderSpec struct {
	Path string `yaml:"path" json:"path" validate:"required"`
}

// S3Spec uploads the bundle to S3-compatible object storage.
type S3Spec struct {
	Bucket          string `yaml:"bucket" json:"bucket" validate:"required"`
	Region          string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix          string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" json:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" json:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty" json:"force_path_style,omitempty"`
}
