// Package criteria describes how a build system should declare a resolved
// dependency, and classifies resolved paths into those descriptions.
package criteria

import (
	"encoding/json"
	"fmt"
)

// Type tags the JSON form of a Criteria.
type Type string

const (
	TypePackage Type = "package"
	TypeFile    Type = "file"
)

// Criteria is either a *PackageCriteria or a *FileCriteria.
type Criteria interface {
	// Import returns the specifier this criteria was produced for.
	Import() string
	// Type returns the JSON tag of the criteria.
	Type() Type
}

// PackageCriteria identifies a third-party package declaration.
type PackageCriteria struct {
	ImportID string          `json:"importId"`
	Lookups  []PackageLookup `json:"lookups"`
}

// PackageLookup matches a declaration in Package whose Call.ID rule has an
// argument matching each regular expression in Call.Args.
type PackageLookup struct {
	Package string      `json:"package"`
	Call    PackageCall `json:"call"`
}

// PackageCall is the rule-call pattern of a PackageLookup. Label names the
// attribute that holds the target name.
type PackageCall struct {
	ID    string            `json:"id"`
	Args  map[string]string `json:"args"`
	Label string            `json:"label"`
}

// FileCriteria identifies the declaration owning a first-party file.
type FileCriteria struct {
	ImportID string     `json:"importId"`
	Lookup   FileLookup `json:"lookup"`
}

// FileLookup lists every declaration shape that could own File (relative to
// the repository root), in preference order. None is privileged here.
type FileLookup struct {
	File  string     `json:"file"`
	Calls []FileCall `json:"calls"`
}

// FileCall is one declaration shape: the rule kind and which attributes hold
// sources, dependencies and the target name.
type FileCall struct {
	ID    string `json:"id"`
	Srcs  string `json:"srcs"`
	Deps  string `json:"deps"`
	Label string `json:"label"`
}

func (c *PackageCriteria) Import() string { return c.ImportID }
func (c *PackageCriteria) Type() Type     { return TypePackage }
func (c *FileCriteria) Import() string    { return c.ImportID }
func (c *FileCriteria) Type() Type        { return TypeFile }

// MarshalJSON adds the "type" tag.
func (c *PackageCriteria) MarshalJSON() ([]byte, error) {
	type plain PackageCriteria
	return json.Marshal(struct {
		Type Type `json:"type"`
		*plain
	}{TypePackage, (*plain)(c)})
}

// MarshalJSON adds the "type" tag.
func (c *FileCriteria) MarshalJSON() ([]byte, error) {
	type plain FileCriteria
	return json.Marshal(struct {
		Type Type `json:"type"`
		*plain
	}{TypeFile, (*plain)(c)})
}

// Encode renders list as a JSON array. An empty list encodes as [].
func Encode(list []Criteria, indent bool) ([]byte, error) {
	if list == nil {
		list = []Criteria{}
	}
	if indent {
		return json.MarshalIndent(list, "", "  ")
	}
	return json.Marshal(list)
}

// Decode parses a JSON array produced by Encode, or by any resolver emitting
// the same document shape.
func Decode(data []byte) ([]Criteria, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding criteria list: %w", err)
	}

	list := make([]Criteria, 0, len(raw))
	for i, elem := range raw {
		var tag struct {
			Type Type `json:"type"`
		}
		if err := json.Unmarshal(elem, &tag); err != nil {
			return nil, fmt.Errorf("decoding criteria %d: %w", i, err)
		}

		switch tag.Type {
		case TypePackage:
			var c PackageCriteria
			if err := json.Unmarshal(elem, &c); err != nil {
				return nil, fmt.Errorf("decoding package criteria %d: %w", i, err)
			}
			list = append(list, &c)
		case TypeFile:
			var c FileCriteria
			if err := json.Unmarshal(elem, &c); err != nil {
				return nil, fmt.Errorf("decoding file criteria %d: %w", i, err)
			}
			list = append(list, &c)
		default:
			return nil, fmt.Errorf("decoding criteria %d: invalid type %q", i, tag.Type)
		}
	}
	return list, nil
}
