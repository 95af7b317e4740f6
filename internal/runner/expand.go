package runner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	v1 "github.com/spoolkit/spool/apis/v1"
)

// BuildVariables assembles the expansion variables for a job: the
// built-in JOB_* values plus any environment variables the caller
// explicitly allowed. An allowed variable that is not set is an error.
func BuildVariables(job v1.BundleJob, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format("20060102T150405Z"),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// Expand substitutes ${NAME} references in s from variables. "$$"
// produces a literal dollar sign. Referencing an unknown variable is an
// error rather than a silent empty string.
func Expand(s string, variables map[string]string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			out.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '$' {
			out.WriteByte('$')
			i++
			continue
		}
		if i+1 >= len(s) || s[i+1] != '{' {
			return "", fmt.Errorf("invalid variable reference at offset %d in %q", i, s)
		}
		end := strings.IndexByte(s[i+2:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated variable reference in %q", s)
		}
		name := s[i+2 : i+2+end]
		value, ok := variables[name]
		if !ok {
			return "", fmt.Errorf("unknown variable %q in %q", name, s)
		}
		out.WriteString(value)
		i += 2 + end
	}
	return out.String(), nil
}

// ExpandJob substitutes variables in every templated field of the job
// document, in place. The set of templated fields is explicit: entry
// names, source values and paths, exec programs and environments, spool
// and output locations.
func ExpandJob(job *v1.BundleJob, variables map[string]string) error {
	expand := func(field *string) error {
		expanded, err := Expand(*field, variables)
		if err != nil {
			return err
		}
		*field = expanded
		return nil
	}

	if err := expand(&job.Spec.Main.Name); err != nil {
		return err
	}
	if err := expandSource(&job.Spec.Main.Source, expand); err != nil {
		return err
	}
	for i := range job.Spec.Entries {
		entry := &job.Spec.Entries[i]
		if err := expand(&entry.Name); err != nil {
			return err
		}
		if err := expandSource(&entry.Source, expand); err != nil {
			return err
		}
	}

	if spool := job.Spec.Spool; spool != nil {
		if err := expand(&spool.TempDir); err != nil {
			return err
		}
	}
	if output := job.Spec.Output; output != nil {
		if err := expand(&output.ArchiveName); err != nil {
			return err
		}
		if output.Destination != nil && output.Destination.Folder != nil {
			if err := expand(&output.Destination.Folder.Path); err != nil {
				return err
			}
		}
		if output.Destination != nil && output.Destination.S3 != nil {
			s3 := output.Destination.S3
			for _, field := range []*string{&s3.Bucket, &s3.Region, &s3.Endpoint, &s3.Prefix} {
				if err := expand(field); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func expandSource(s *v1.SourceSpec, expand func(*string) error) error {
	if s.Inline != nil {
		if err := expand(&s.Inline.Value); err != nil {
			return err
		}
	}
	if s.File != nil {
		if err := expand(&s.File.Path); err != nil {
			return err
		}
	}
	if s.Exec != nil {
		for i := range s.Exec.Program {
			if err := expand(&s.Exec.Program[i]); err != nil {
				return err
			}
		}
		if err := expand(&s.Exec.WorkingDir); err != nil {
			return err
		}
		for key, value := range s.Exec.Env {
			if err := expand(&value); err != nil {
				return err
			}
			s.Exec.Env[key] = value
		}
	}
	return nil
}
