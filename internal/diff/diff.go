// Package diff computes a structural comparison between two templates so
// the operator can preview what a deploy would change.
package diff

import (
	"fmt"
	"io"
	"reflect"

	"github.com/pose/aws-cdk/internal/template"
)

// Action classifies one entry of a diff.
type Action string

const (
	Added   Action = "+"
	Removed Action = "-"
	Updated Action = "~"
)

// Change is one added, removed or updated entry in a template section.
type Change struct {
	Action Action
	Name   string
	// Type is the resource type for resource changes, empty otherwise.
	Type string
}

// Diff is the structural difference between two templates, section by
// section.
type Diff struct {
	Resources  []Change
	Outputs    []Change
	Parameters []Change
}

// Empty reports a diff with no changes at all: deploying the new template
// would be a no-op.
func (d *Diff) Empty() bool {
	return len(d.Resources) == 0 && len(d.Outputs) == 0 && len(d.Parameters) == 0
}

// Templates compares the deployed template against the synthesized one.
func Templates(old, new template.Document) *Diff {
	return &Diff{
		Resources:  compareSection(old.Resources(), new.Resources(), true),
		Outputs:    compareSection(old.Outputs(), new.Outputs(), false),
		Parameters: compareSection(old.Parameters(), new.Parameters(), false),
	}
}

func compareSection(old, new map[string]interface{}, typed bool) []Change {
	var changes []Change
	for _, name := range template.SortedKeys(old) {
		if _, ok := new[name]; !ok {
			changes = append(changes, Change{Action: Removed, Name: name, Type: entryType(old[name], typed)})
		}
	}
	for _, name := range template.SortedKeys(new) {
		oldEntry, ok := old[name]
		if !ok {
			changes = append(changes, Change{Action: Added, Name: name, Type: entryType(new[name], typed)})
			continue
		}
		if !reflect.DeepEqual(oldEntry, new[name]) {
			changes = append(changes, Change{Action: Updated, Name: name, Type: entryType(new[name], typed)})
		}
	}
	return changes
}

// entryType pulls the CloudFormation resource type out of a resource entry.
func entryType(entry interface{}, typed bool) string {
	if !typed {
		return ""
	}
	if m, ok := entry.(map[string]interface{}); ok {
		if t, ok := m["Type"].(string); ok {
			return t
		}
	}
	return ""
}

// Render writes the diff in a compact per-section listing. An empty diff
// renders a single "no differences" line.
func (d *Diff) Render(w io.Writer) {
	if d.Empty() {
		fmt.Fprintln(w, "There were no differences")
		return
	}
	renderSection(w, "Resources", d.Resources)
	renderSection(w, "Outputs", d.Outputs)
	renderSection(w, "Parameters", d.Parameters)
}

func renderSection(w io.Writer, title string, changes []Change) {
	if len(changes) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", title)
	for _, c := range changes {
		if c.Type != "" {
			fmt.Fprintf(w, "  %s %s (%s)\n", c.Action, c.Name, c.Type)
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", c.Action, c.Name)
	}
}
