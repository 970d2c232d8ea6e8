// Package record defines the canonical path and record types of the
// connected data lake: GlobalPath/DatasetPath/Scheme and the
// FileRecord chunk schema.
package record

import (
	"strings"

	"github.com/connected-data-lake/cdl/internal/cdlerr"
)

// Scheme is the dataset's storage backend kind.
type Scheme int

// The two supported schemes. S3A is accepted as an alias for S3.
const (
	Local Scheme = iota
	S3
)

// ParseScheme parses a scheme token, accepting "s3a" as an alias for S3.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "s3", "s3a":
		return S3, nil
	default:
		return 0, cdlerr.NewConfigError("unknown scheme: "+strings.TrimSpace(s), nil)
	}
}

func (s Scheme) String() string {
	switch s {
	case Local:
		return "local"
	case S3:
		return "s3"
	default:
		return "unknown"
	}
}

// DatasetPath identifies one dataset: its scheme and name.
type DatasetPath struct {
	Scheme Scheme
	Name   string
}

func (d DatasetPath) String() string {
	return d.Scheme.String() + "://" + d.Name
}

// ToURI renders rel as a URI under this dataset. A Local dataset returns
// rel unchanged; an S3 dataset trims leading/trailing slashes from rel
// before joining it under s3://<name>/.
func (d DatasetPath) ToURI(rel string) string {
	switch d.Scheme {
	case Local:
		return rel
	case S3:
		trimmed := strings.Trim(rel, "/")
		return "s3://" + d.Name + "/" + trimmed
	default:
		return rel
	}
}

// GlobalPath is a DatasetPath plus a relative path within it.
type GlobalPath struct {
	Dataset DatasetPath
	Rel     string
}

func (g GlobalPath) String() string {
	return g.Dataset.ToURI(g.Rel)
}

// ParseGlobalPath parses a string of the form "<scheme>://<dataset>/<rel>",
// or, absent "://", treats s as a local filesystem path with dataset name
// "localhost".
func ParseGlobalPath(s string) (GlobalPath, error) {
	s = strings.TrimSpace(s)
	idx := strings.Index(s, "://")
	if idx < 0 {
		return GlobalPath{
			Dataset: DatasetPath{Scheme: Local, Name: "localhost"},
			Rel:     s,
		}, nil
	}

	schemeStr, rest := s[:idx], s[idx+3:]
	scheme, err := ParseScheme(schemeStr)
	if err != nil {
		return GlobalPath{}, err
	}

	slashIdx := strings.Index(rest, "/")
	var name, rel string
	if slashIdx < 0 {
		name = strings.TrimSpace(rest)
	} else {
		name = strings.TrimSpace(rest[:slashIdx])
		rel = strings.TrimSpace(rest[slashIdx+1:])
	}
	if name == "" {
		return GlobalPath{}, cdlerr.NewConfigError("empty dataset name: "+s, nil)
	}

	return GlobalPath{
		Dataset: DatasetPath{Scheme: scheme, Name: name},
		Rel:     rel,
	}, nil
}

// NormalizeRel strips a leading "/" and trailing "/" from rel before it
// is used to form URIs or joined into subpaths.
func NormalizeRel(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimSuffix(rel, "/")
	return rel
}
