package validator

import (
	"bytes"
	"io/fs"

	gherkin "github.com/cucumber/gherkin/go/v26"
	messages "github.com/cucumber/messages/go/v21"
)

// Scenario is a compiled scenario: background and outline rows expanded.
type Scenario struct {
	Name  string
	Line  int64
	Tags  []string
	Steps []Step
}

// ParseFeature parses a feature file and compiles its scenarios.
func ParseFeature(fsys fs.FS, name string) ([]Scenario, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}

	newID := (&messages.Incrementing{}).NewId
	doc, err := gherkin.ParseGherkinDocument(bytes.NewReader(data), newID)
	if err != nil {
		return nil, err
	}
	if doc.Feature == nil {
		return nil, nil
	}

	lines := nodeLines(doc.Feature)
	pickles := gherkin.Pickles(*doc, name, newID)

	scenarios := make([]Scenario, 0, len(pickles))
	for _, p := range pickles {
		sc := Scenario{Name: p.Name}
		if len(p.AstNodeIds) > 0 {
			sc.Line = lines[p.AstNodeIds[0]]
		}
		for _, tag := range p.Tags {
			sc.Tags = append(sc.Tags, tag.Name)
		}
		for _, st := range p.Steps {
			var line int64
			if len(st.AstNodeIds) > 0 {
				line = lines[st.AstNodeIds[0]]
			}
			sc.Steps = append(sc.Steps, Step{Text: st.Text, Line: line})
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

// nodeLines maps scenario and step AST node IDs to source lines.
func nodeLines(feature *messages.Feature) map[string]int64 {
	lines := make(map[string]int64)

	addSteps := func(steps []*messages.Step) {
		for _, st := range steps {
			if st.Location != nil {
				lines[st.Id] = st.Location.Line
			}
		}
	}
	addScenario := func(sc *messages.Scenario) {
		if sc.Location != nil {
			lines[sc.Id] = sc.Location.Line
		}
		addSteps(sc.Steps)
	}

	for _, child := range feature.Children {
		switch {
		case child.Background != nil:
			addSteps(child.Background.Steps)
		case child.Scenario != nil:
			addScenario(child.Scenario)
		case child.Rule != nil:
			for _, rc := range child.Rule.Children {
				if rc.Background != nil {
					addSteps(rc.Background.Steps)
				}
				if rc.Scenario != nil {
					addScenario(rc.Scenario)
				}
			}
		}
	}
	return lines
}
