// Package models provides the shared data structures exchanged between the
// synthesizer output, the deployment orchestrator, and the CLI.
package models

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pose/aws-cdk/internal/template"
)

// Placeholder values a synthesizer may emit when a stack was not bound to a
// concrete environment. The CLI substitutes the caller's default account and
// region before handing the stack to the orchestrator.
const (
	UnknownAccount = "unknown-account"
	UnknownRegion  = "unknown-region"
)

// Environment is the target account/region a stack deploys into.
type Environment struct {
	Name    string `json:"name,omitempty"`
	Account string `json:"account"`
	Region  string `json:"region"`
}

// Resolved reports whether the environment names a concrete account and
// region rather than placeholders.
func (e *Environment) Resolved() bool {
	if e == nil {
		return false
	}
	if e.Account == "" || e.Account == UnknownAccount {
		return false
	}
	if e.Region == "" || e.Region == UnknownRegion {
		return false
	}
	return true
}

func (e *Environment) String() string {
	if e == nil {
		return "aws://?/?"
	}
	return fmt.Sprintf("aws://%s/%s", e.Account, e.Region)
}

// Metadata entry types attached to construct paths during synthesis.
const (
	// AssetMetadataType marks an entry describing a staged file asset.
	AssetMetadataType = "aws:cdk:asset"
	// LogicalIDMetadataType maps a construct path to its template logical ID.
	LogicalIDMetadataType = "aws:cdk:logicalId"
)

// MetadataEntry is one synthesis annotation attached to a construct path.
type MetadataEntry struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Metadata maps construct paths to the entries recorded against them.
type Metadata map[string][]MetadataEntry

// AssetEntry is the payload of an AssetMetadataType metadata entry: a local
// artifact that must be staged in the toolkit bucket, with the template
// parameters that receive its location.
type AssetEntry struct {
	Path              string `json:"path"`
	ID                string `json:"id"`
	Packaging         string `json:"packaging"` // "file" or "zip"
	S3BucketParameter string `json:"s3BucketParameter"`
	S3KeyParameter    string `json:"s3KeyParameter"`
}

// Asset packaging modes.
const (
	FilePackaging = "file"
	ZipPackaging  = "zip"
)

// Stack is a synthesized stack descriptor: the opaque output of the
// synthesizer and the orchestrator's immutable input.
type Stack struct {
	Name        string            `json:"name"`
	Environment *Environment      `json:"environment,omitempty"`
	Template    template.Document `json:"template"`
	Metadata    Metadata          `json:"metadata,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// Assets collects the asset entries declared in the stack's metadata, in
// path order.
func (s *Stack) Assets() ([]AssetEntry, error) {
	var out []AssetEntry
	for _, path := range sortedPaths(s.Metadata) {
		for _, entry := range s.Metadata[path] {
			if entry.Type != AssetMetadataType {
				continue
			}
			var asset AssetEntry
			if err := json.Unmarshal(entry.Data, &asset); err != nil {
				return nil, fmt.Errorf("invalid asset metadata at %s: %w", path, err)
			}
			out = append(out, asset)
		}
	}
	return out, nil
}

// PathForLogicalID returns the construct path that synthesized the given
// template logical ID, or "" when the metadata carries no mapping. The
// activity monitor uses it to label stack events with source paths.
func (s *Stack) PathForLogicalID(logicalID string) string {
	for path, entries := range s.Metadata {
		for _, entry := range entries {
			if entry.Type != LogicalIDMetadataType {
				continue
			}
			var id string
			if err := json.Unmarshal(entry.Data, &id); err != nil {
				continue
			}
			if id == logicalID {
				return path
			}
		}
	}
	return ""
}

// Assembly is a synthesized cloud assembly: the set of stacks an app
// produced, read from disk as opaque input.
type Assembly struct {
	Version string  `json:"version,omitempty"`
	Stacks  []Stack `json:"stacks"`
}

// LoadAssembly reads a cloud assembly JSON file produced by an external
// synthesizer.
func LoadAssembly(path string) (*Assembly, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read assembly %s: %w", path, err)
	}
	var assembly Assembly
	if err := json.Unmarshal(data, &assembly); err != nil {
		return nil, fmt.Errorf("failed to parse assembly %s: %w", path, err)
	}
	seen := make(map[string]bool, len(assembly.Stacks))
	for i := range assembly.Stacks {
		name := assembly.Stacks[i].Name
		if name == "" {
			return nil, fmt.Errorf("assembly %s: stack %d has no name", path, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("assembly %s: duplicate stack name %q", path, name)
		}
		seen[name] = true
	}
	return &assembly, nil
}

// Stack returns the named stack from the assembly.
func (a *Assembly) Stack(name string) (*Stack, error) {
	for i := range a.Stacks {
		if a.Stacks[i].Name == name {
			return &a.Stacks[i], nil
		}
	}
	return nil, fmt.Errorf("no stack named %q in the assembly (available: %v)", name, a.StackNames())
}

// StackNames lists the assembly's stack names in declaration order.
func (a *Assembly) StackNames() []string {
	names := make([]string, len(a.Stacks))
	for i := range a.Stacks {
		names[i] = a.Stacks[i].Name
	}
	return names
}

func sortedPaths(m Metadata) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
