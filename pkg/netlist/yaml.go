package netlist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type YNetwork struct {
	Title     string      `yaml:"title,omitempty"`
	Resistors []YResistor `yaml:"resistors"`
	Sources   []YSource   `yaml:"sources,omitempty"`
	Loops     []YLoop     `yaml:"loops"`
	Nodes     []YNode     `yaml:"nodes,omitempty"`
	Analysis  *YAnalysis  `yaml:"analysis,omitempty"`
}

type YResistor struct {
	Name       string  `yaml:"name"`
	Resistance float64 `yaml:"resistance"`
	Current    int     `yaml:"current"`
}

type YSource struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
	Type  string  `yaml:"type,omitempty"`
}

type YLoop struct {
	Name  string   `yaml:"name"`
	Nodes []string `yaml:"nodes"`
}

type YNode struct {
	Name string `yaml:"name"`
	In   []int  `yaml:"in,omitempty"`
	Out  []int  `yaml:"out,omitempty"`
}

type YAnalysis struct {
	Type  string   `yaml:"type"`
	Sweep []YSweep `yaml:"sweep,omitempty"`
}

type YSweep struct {
	Source string  `yaml:"source"`
	Start  float64 `yaml:"start"`
	Stop   float64 `yaml:"stop"`
	Step   float64 `yaml:"step"`
}

// ParseYAML reads the YAML form of a network. Unknown keys are rejected.
func ParseYAML(input []byte) (*NetlistData, error) {
	var y YNetwork

	dec := yaml.NewDecoder(bytes.NewReader(input))
	dec.KnownFields(true)
	if err := dec.Decode(&y); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty yaml network")
		}
		return nil, fmt.Errorf("decoding yaml network: %v", err)
	}

	netlistData := &NetlistData{Title: y.Title}

	for i, r := range y.Resistors {
		if r.Name == "" {
			return nil, fmt.Errorf("resistors[%d]: missing name", i)
		}
		netlistData.Elements = append(netlistData.Elements, Element{
			Type:    "R",
			Name:    strings.ToLower(r.Name),
			Value:   r.Resistance,
			Current: r.Current,
		})
	}
	for i, s := range y.Sources {
		if s.Name == "" {
			return nil, fmt.Errorf("sources[%d]: missing name", i)
		}
		netlistData.Elements = append(netlistData.Elements, Element{
			Type:  "V",
			Name:  strings.ToLower(s.Name),
			Value: s.Value,
			Kind:  strings.ToLower(s.Type),
		})
	}

	for i, l := range y.Loops {
		name := l.Name
		if name == "" {
			name = fmt.Sprintf("l%d", i+1)
		}
		nodes := make([]string, len(l.Nodes))
		for j, n := range l.Nodes {
			nodes[j] = strings.ToLower(n)
		}
		netlistData.Loops = append(netlistData.Loops, LoopDef{Name: strings.ToLower(name), Nodes: nodes})
	}

	for i, n := range y.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("nodes[%d]: missing name", i)
		}
		if len(n.In)+len(n.Out) == 0 {
			return nil, fmt.Errorf("nodes[%d]: %s needs in or out slots", i, n.Name)
		}
		for _, slot := range append(append([]int(nil), n.In...), n.Out...) {
			if slot < 1 {
				return nil, fmt.Errorf("nodes[%d]: invalid current slot %d", i, slot)
			}
		}
		netlistData.Nodes = append(netlistData.Nodes, NodeDef{Name: strings.ToLower(n.Name), In: n.In, Out: n.Out})
	}

	if a := y.Analysis; a != nil {
		switch strings.ToLower(a.Type) {
		case "", "op":
			netlistData.Analysis = AnalysisOP
		case "dc":
			if len(a.Sweep) < 1 || len(a.Sweep) > 2 {
				return nil, fmt.Errorf("dc analysis needs one or two sweeps, got %d", len(a.Sweep))
			}
			netlistData.Analysis = AnalysisDC
			s := a.Sweep[0]
			netlistData.DCParam.Source1 = strings.ToLower(s.Source)
			netlistData.DCParam.Start1 = s.Start
			netlistData.DCParam.Stop1 = s.Stop
			netlistData.DCParam.Increment1 = s.Step
			if len(a.Sweep) == 2 {
				s = a.Sweep[1]
				netlistData.DCParam.Source2 = strings.ToLower(s.Source)
				netlistData.DCParam.Start2 = s.Start
				netlistData.DCParam.Stop2 = s.Stop
				netlistData.DCParam.Increment2 = s.Step
			}
		default:
			return nil, fmt.Errorf("unsupported analysis type: %s", a.Type)
		}
	}

	return netlistData, nil
}

// MarshalYAML writes netlistData in the form ParseYAML reads.
func MarshalYAML(netlistData *NetlistData) ([]byte, error) {
	y := YNetwork{Title: netlistData.Title}

	for _, e := range netlistData.Elements {
		switch e.Type {
		case "R":
			y.Resistors = append(y.Resistors, YResistor{Name: e.Name, Resistance: e.Value, Current: e.Current})
		case "V":
			y.Sources = append(y.Sources, YSource{Name: e.Name, Value: e.Value, Type: e.Kind})
		}
	}
	for _, l := range netlistData.Loops {
		y.Loops = append(y.Loops, YLoop{Name: l.Name, Nodes: l.Nodes})
	}
	for _, n := range netlistData.Nodes {
		y.Nodes = append(y.Nodes, YNode{Name: n.Name, In: n.In, Out: n.Out})
	}
	if netlistData.Analysis == AnalysisDC {
		dc := netlistData.DCParam
		a := &YAnalysis{Type: "dc", Sweep: []YSweep{{Source: dc.Source1, Start: dc.Start1, Stop: dc.Stop1, Step: dc.Increment1}}}
		if dc.Source2 != "" {
			a.Sweep = append(a.Sweep, YSweep{Source: dc.Source2, Start: dc.Start2, Stop: dc.Stop2, Step: dc.Increment2})
		}
		y.Analysis = a
	}

	return yaml.Marshal(&y)
}

// ReadFile parses a network file, choosing the YAML reader for .yaml and
// .yml files and the tag block reader otherwise.
func ReadFile(filename string) (*NetlistData, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return ParseYAML(content)
	default:
		return Parse(string(content))
	}
}
