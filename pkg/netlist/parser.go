package netlist

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type AnalysisType int

const (
	AnalysisOP AnalysisType = iota
	AnalysisDC
)

func (a AnalysisType) String() string {
	if a == AnalysisDC {
		return "dc"
	}
	return "op"
}

type NetlistData struct {
	Title    string
	Elements []Element // Resistors and sources in file order
	Loops    []LoopDef
	Nodes    []NodeDef
	Analysis AnalysisType
	DCParam  struct {
		Source1    string
		Start1     float64
		Stop1      float64
		Increment1 float64
		Source2    string
		Start2     float64
		Stop2      float64
		Increment2 float64
	}
}

type Element struct {
	Type    string  // R or V
	Name    string  // Node labels, e.g. "ab"
	Value   float64 // Resistance or voltage
	Kind    string  // Source type tag
	Current int     // Signed 1-based current slot, 0 when not given
	Line    int
}

type LoopDef struct {
	Name  string
	Nodes []string
	Line  int
}

// NodeDef is a current balance: slots listed in In enter the node, slots in
// Out leave it. Slot numbers are 1-based.
type NodeDef struct {
	Name string
	In   []int
	Out  []int
	Line int
}

var unitMap = map[string]float64{
	"t":   1e12,  // tera
	"g":   1e9,   // giga
	"meg": 1e6,   // mega
	"k":   1e3,   // kilo
	"m":   1e-3,  // milli
	"u":   1e-6,  // micro
	"n":   1e-9,  // nano
	"p":   1e-12, // pico
	"f":   1e-15, // femto
}

var valueRe = regexp.MustCompile(`^([-+]?\d*\.?\d+(?:e[-+]?\d+)?)(meg|[tgkmunpf])?(?:v|a|ohms?)?$`)

// ParseValue reads a number with an optional SI factor and unit, e.g. "4k",
// "2.2meg", "12v".
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(val)))
	if matches == nil {
		return 0, fmt.Errorf("invalid value format: %s", val)
	}

	num, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, err
	}

	if matches[2] != "" {
		num *= unitMap[matches[2]]
	}

	return num, nil
}

type block struct {
	tag    string
	line   int
	fields map[string]string
	lines  map[string]int
}

// Parse reads the tag block format:
//
//	<Resistor>
//	name = ab
//	resistance = 5
//	current = 1
//	</Resistor>
//
// plus <Source>, <Loop> and <Node> blocks and the .title, .op and .dc
// directives. Everything except the title is case-insensitive; '#' starts a
// comment.
func Parse(input string) (*NetlistData, error) {
	scanner := bufio.NewScanner(strings.NewReader(input))
	netlistData := &NetlistData{}

	var current *block
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "</"):
			tag := strings.TrimSuffix(strings.TrimPrefix(lower, "</"), ">")
			if current == nil || current.tag != canonicalTag(tag) {
				return nil, fmt.Errorf("line %d: unexpected closing tag %s", lineNum, line)
			}
			if err := netlistData.addBlock(current); err != nil {
				return nil, err
			}
			current = nil

		case strings.HasPrefix(lower, "<"):
			if current != nil {
				return nil, fmt.Errorf("line %d: %s opened inside <%s> block from line %d", lineNum, line, current.tag, current.line)
			}
			tag := canonicalTag(strings.TrimSuffix(strings.TrimPrefix(lower, "<"), ">"))
			if tag == "" {
				return nil, fmt.Errorf("line %d: unknown block %s", lineNum, line)
			}
			current = &block{tag: tag, line: lineNum, fields: make(map[string]string), lines: make(map[string]int)}

		case strings.HasPrefix(lower, "."):
			if current != nil {
				return nil, fmt.Errorf("line %d: directive inside <%s> block", lineNum, current.tag)
			}
			if err := parseDotOperator(netlistData, line); err != nil {
				return nil, fmt.Errorf("line %d: %v", lineNum, err)
			}

		default:
			if current == nil {
				return nil, fmt.Errorf("line %d: %q outside of a block", lineNum, line)
			}
			key, value, ok := strings.Cut(lower, "=")
			if !ok {
				return nil, fmt.Errorf("line %d: expected key = value, got %q", lineNum, line)
			}
			key = strings.TrimSpace(key)
			current.fields[key] = strings.TrimSpace(value)
			current.lines[key] = lineNum
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading netlist: %v", err)
	}

	if current != nil {
		return nil, fmt.Errorf("line %d: unterminated <%s> block", current.line, current.tag)
	}

	return netlistData, nil
}

func canonicalTag(tag string) string {
	switch strings.TrimSpace(tag) {
	case "resistor":
		return "resistor"
	case "source", "vsource", "voltagesource":
		return "source"
	case "loop":
		return "loop"
	case "node":
		return "node"
	}
	return ""
}

func (b *block) get(keys ...string) (string, int, bool) {
	for _, key := range keys {
		if v, ok := b.fields[key]; ok {
			return v, b.lines[key], true
		}
	}
	return "", b.line, false
}

func (b *block) require(keys ...string) (string, int, error) {
	v, line, ok := b.get(keys...)
	if !ok || v == "" {
		return "", b.line, fmt.Errorf("line %d: <%s> block needs %s", b.line, b.tag, keys[0])
	}
	return v, line, nil
}

func (b *block) value(keys ...string) (float64, error) {
	raw, line, err := b.require(keys...)
	if err != nil {
		return 0, err
	}
	v, err := ParseValue(raw)
	if err != nil {
		return 0, fmt.Errorf("line %d: %s: %v", line, keys[0], err)
	}
	return v, nil
}

func (netlistData *NetlistData) addBlock(b *block) error {
	switch b.tag {
	case "resistor":
		name, _, err := b.require("name")
		if err != nil {
			return err
		}
		resistance, err := b.value("resistance", "value")
		if err != nil {
			return err
		}
		elem := Element{Type: "R", Name: name, Value: resistance, Line: b.line}
		if raw, line, ok := b.get("current", "slot"); ok {
			elem.Current, err = strconv.Atoi(raw)
			if err != nil || elem.Current == 0 {
				return fmt.Errorf("line %d: current slot must be a non-zero integer, got %q", line, raw)
			}
		}
		netlistData.Elements = append(netlistData.Elements, elem)

	case "source":
		name, _, err := b.require("name")
		if err != nil {
			return err
		}
		voltage, err := b.value("value", "voltage")
		if err != nil {
			return err
		}
		kind, _, _ := b.get("type")
		netlistData.Elements = append(netlistData.Elements, Element{Type: "V", Name: name, Value: voltage, Kind: kind, Line: b.line})

	case "loop":
		raw, _, err := b.require("nodes")
		if err != nil {
			return err
		}
		name, _, ok := b.get("name")
		if !ok {
			name = fmt.Sprintf("l%d", len(netlistData.Loops)+1)
		}
		netlistData.Loops = append(netlistData.Loops, LoopDef{Name: name, Nodes: splitList(raw), Line: b.line})

	case "node":
		name, _, err := b.require("name")
		if err != nil {
			return err
		}
		node := NodeDef{Name: name, Line: b.line}
		for _, key := range []string{"in", "out"} {
			raw, line, ok := b.get(key)
			if !ok {
				continue
			}
			slots, err := parseSlots(raw)
			if err != nil {
				return fmt.Errorf("line %d: %s: %v", line, key, err)
			}
			if key == "in" {
				node.In = slots
			} else {
				node.Out = slots
			}
		}
		if len(node.In)+len(node.Out) == 0 {
			return fmt.Errorf("line %d: <node> %s needs in or out slots", b.line, name)
		}
		netlistData.Nodes = append(netlistData.Nodes, node)
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(strings.ReplaceAll(raw, " ", ""), ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			list = append(list, p)
		}
	}
	return list
}

func parseSlots(raw string) ([]int, error) {
	var slots []int
	for _, p := range splitList(raw) {
		slot, err := strconv.Atoi(strings.TrimPrefix(p, "i"))
		if err != nil || slot < 1 {
			return nil, fmt.Errorf("invalid current slot %q", p)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// Parse .title, .op, .dc
func parseDotOperator(netlistData *NetlistData, line string) error {
	var err error

	fields := strings.Fields(line)
	if len(fields) < 1 {
		return fmt.Errorf("invalid analysis command")
	}

	switch strings.ToLower(fields[0]) {
	case ".title":
		netlistData.Title = strings.TrimSpace(line[len(fields[0]):])

	case ".op":
		netlistData.Analysis = AnalysisOP

	case ".dc":
		netlistData.Analysis = AnalysisDC
		if len(fields) != 5 && len(fields) != 9 {
			return fmt.Errorf("insufficient DC sweep parameters")
		}

		// First source sweep
		netlistData.DCParam.Source1 = strings.ToLower(fields[1])
		netlistData.DCParam.Start1, err = ParseValue(fields[2])
		if err != nil {
			return fmt.Errorf("invalid start value: %v", err)
		}
		netlistData.DCParam.Stop1, err = ParseValue(fields[3])
		if err != nil {
			return fmt.Errorf("invalid stop value: %v", err)
		}
		netlistData.DCParam.Increment1, err = ParseValue(fields[4])
		if err != nil {
			return fmt.Errorf("invalid increment value: %v", err)
		}

		if len(fields) == 9 {
			netlistData.DCParam.Source2 = strings.ToLower(fields[5])
			netlistData.DCParam.Start2, err = ParseValue(fields[6])
			if err != nil {
				return fmt.Errorf("invalid start2 value: %v", err)
			}
			netlistData.DCParam.Stop2, err = ParseValue(fields[7])
			if err != nil {
				return fmt.Errorf("invalid stop2 value: %v", err)
			}
			netlistData.DCParam.Increment2, err = ParseValue(fields[8])
			if err != nil {
				return fmt.Errorf("invalid increment2 value: %v", err)
			}
		}

	default:
		return fmt.Errorf("unsupported analysis type: %s", fields[0])
	}

	return nil
}
