package plan

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"sigs.k8s.io/yaml"

	"github.com/eleven-am/stackinfra/internal/domain"
)

type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
)

type document struct {
	Stack     string  `json:"stack"`
	Resources []entry `json:"resources"`
}

type entry struct {
	Name      string          `json:"name"`
	Kind      domain.Kind     `json:"kind"`
	Level     int             `json:"level"`
	DependsOn []string        `json:"dependsOn,omitempty"`
	Spec      domain.Resource `json:"spec"`
}

func (p *Plan) document() document {
	doc := document{Stack: p.stack, Resources: make([]entry, 0, len(p.resources))}
	for i, r := range p.resources {
		doc.Resources = append(doc.Resources, entry{
			Name:      r.ResourceName(),
			Kind:      r.ResourceKind(),
			Level:     p.levels[i],
			DependsOn: dependencyNames(r),
			Spec:      r,
		})
	}
	return doc
}

func (p *Plan) Render(w io.Writer, format Format) error {
	switch format {
	case FormatYAML:
		out, err := yaml.Marshal(p.document())
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
		_, err = w.Write(out)
		return err
	case FormatText, "":
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Level", "Kind", "Name", "Depends On"})
		table.SetAutoWrapText(false)
		for _, e := range p.document().Resources {
			table.Append([]string{
				fmt.Sprint(e.Level),
				string(e.Kind),
				e.Name,
				strings.Join(e.DependsOn, ", "),
			})
		}
		table.Render()
		return nil
	}
	return fmt.Errorf("unknown plan format %q", format)
}

// dependencyNames returns the distinct resources r depends on, sorted.
func dependencyNames(r domain.Resource) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, dep := range r.DependsOn() {
		if _, ok := seen[dep.Resource]; ok {
			continue
		}
		seen[dep.Resource] = struct{}{}
		names = append(names, dep.Resource)
	}
	sort.Strings(names)
	return names
}
