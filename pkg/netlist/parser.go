package netlist

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gospyce/pkg/device"
	"gospyce/pkg/stimulus"

	"github.com/pkg/errors"
)

// Suffixes follow SPICE conventions, case-insensitive: "m" is milli,
// mega is spelled "meg".
var unitExp = map[string]int{
	"t":   12,
	"g":   9,
	"meg": 6,
	"k":   3,
	"m":   -3,
	"u":   -6,
	"n":   -9,
	"p":   -12,
	"f":   -15,
}

var valueRe = regexp.MustCompile(`(?i)^([-+]?\d*\.?\d+)(?:[eE]([-+]?\d+))?(meg|[tgkmunpf])?s?$`)

// ParseValue parses a number with an optional engineering suffix, 1k -> 1000.
// The suffix is folded into the decimal exponent before conversion so the
// result is correctly rounded, not a product of two roundings.
func ParseValue(val string) (float64, error) {
	matches := valueRe.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return 0, errors.Errorf("invalid value format: %s", val)
	}
	exp := 0
	if matches[2] != "" {
		e, err := strconv.Atoi(matches[2])
		if err != nil {
			return 0, err
		}
		exp = e
	}
	if matches[3] != "" {
		exp += unitExp[strings.ToLower(matches[3])]
	}
	return strconv.ParseFloat(matches[1]+"e"+strconv.Itoa(exp), 64)
}

type parser struct {
	nl     *Netlist
	subckt *Subckt // non-nil inside .subckt/.ends
	ended  bool
}

// Parse reads a SPICE-style deck: title line, element cards, dot commands.
// Comments start with "*", continuations with "+". The supported element
// set is R, L, C, V, I, D, K and X plus .model, .subckt/.ends, .tran and
// .end.
func Parse(r io.Reader) (*Netlist, error) {
	scanner := bufio.NewScanner(r)

	var nl *Netlist
	if scanner.Scan() {
		title := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "*"))
		nl = New(title)
	} else {
		return nil, errors.New("empty deck")
	}
	p := &parser{nl: nl}

	var current string
	var currentLine int
	lineno := 1

	flush := func() error {
		if current == "" {
			return nil
		}
		err := p.statement(current)
		current = ""
		if err != nil {
			return errors.Wrapf(err, "line %d", currentLine)
		}
		return nil
	}

	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())

		if idx := strings.Index(line, "*"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "+") {
			if current == "" {
				return nil, errors.Errorf("line %d: continuation without a statement", lineno)
			}
			current += " " + strings.TrimSpace(line[1:])
			continue
		}
		if err := flush(); err != nil {
			return nil, err
		}
		current = line
		currentLine = lineno
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading deck")
	}
	if p.subckt != nil {
		return nil, errors.Errorf("subckt %s not closed with .ends", p.subckt.Name)
	}
	return nl, nil
}

func (p *parser) statement(line string) error {
	line = regexp.MustCompile(`\s+`).ReplaceAllString(line, " ")
	if p.ended {
		return errors.New("statement after .end")
	}
	if strings.HasPrefix(line, ".") {
		return p.dotCommand(line)
	}
	return p.element(line)
}

func (p *parser) dotCommand(line string) error {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case ".model":
		return p.model(fields[1:])

	case ".tran":
		if len(fields) < 3 {
			return errors.New("tran needs tstep and tstop")
		}
		step, err := ParseValue(fields[1])
		if err != nil {
			return errors.Wrap(err, "invalid tstep")
		}
		stop, err := ParseValue(fields[2])
		if err != nil {
			return errors.Wrap(err, "invalid tstop")
		}
		p.nl.Tran = &TranSpec{Step: step, Stop: stop}
		return nil

	case ".subckt":
		if p.subckt != nil {
			return errors.Errorf("nested .subckt inside %s", p.subckt.Name)
		}
		if len(fields) < 3 {
			return errors.New("subckt needs a name and at least one port")
		}
		p.subckt = NewSubckt(fields[1], fields[2:]...)
		return nil

	case ".ends":
		if p.subckt == nil {
			return errors.New(".ends without .subckt")
		}
		def := p.subckt
		p.subckt = nil
		return p.nl.Subckt(def)

	case ".end":
		p.ended = true
		return nil

	default:
		return errors.Errorf("unsupported command %s", fields[0])
	}
}

func (p *parser) model(fields []string) error {
	if len(fields) < 2 {
		return errors.New("insufficient model parameters")
	}
	name := fields[0]
	if strings.ToUpper(fields[1]) != "D" {
		return errors.Errorf("unsupported model type %s", fields[1])
	}

	paramStr := strings.Join(fields[2:], " ")
	paramStr = strings.Trim(paramStr, "() ")

	params := map[string]float64{}
	for _, pair := range strings.Fields(paramStr) {
		pair = strings.Trim(pair, "()")
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			continue
		}
		value, err := ParseValue(parts[1])
		if err != nil {
			return errors.Wrapf(err, "invalid parameter %s", pair)
		}
		params[strings.ToLower(parts[0])] = value
	}
	p.nl.Model(name, params)
	return nil
}

func (p *parser) element(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return errors.Errorf("invalid element card: %s", line)
	}
	name := fields[0]

	if p.subckt != nil {
		// inner cards are rebuilt per instance
		return p.subckt.Device(name, func() (device.Device, error) {
			return buildElement(fields)
		})
	}
	dev, err := buildElement(fields)
	if err != nil {
		return err
	}
	return p.nl.Device(name, dev)
}

func buildElement(fields []string) (device.Device, error) {
	name := fields[0]
	switch strings.ToUpper(name[:1]) {
	case "R":
		if len(fields) != 4 {
			return nil, errors.Errorf("resistor %s needs two nodes and a value", name)
		}
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, err
		}
		return device.NewResistor(fields[1], fields[2], value)

	case "C":
		if len(fields) != 4 {
			return nil, errors.Errorf("capacitor %s needs two nodes and a value", name)
		}
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, err
		}
		return device.NewCapacitor(fields[1], fields[2], value)

	case "L":
		if len(fields) != 4 {
			return nil, errors.Errorf("inductor %s needs two nodes and a value", name)
		}
		value, err := ParseValue(fields[3])
		if err != nil {
			return nil, err
		}
		return device.NewInductor(fields[1], fields[2], value)

	case "V":
		return buildSource(fields, true)

	case "I":
		return buildSource(fields, false)

	case "D":
		if len(fields) < 3 {
			return nil, errors.Errorf("diode %s needs two nodes", name)
		}
		d := device.NewDiode(fields[1], fields[2])
		if len(fields) > 3 {
			d.SetModel(fields[3])
		}
		return d, nil

	case "K":
		if len(fields) != 4 {
			return nil, errors.Errorf("coupling %s needs two inductors and a coefficient", name)
		}
		coeff, err := ParseValue(fields[3])
		if err != nil {
			return nil, errors.Wrap(err, "invalid coupling coefficient")
		}
		return device.NewMutual(fields[1], fields[2], coeff)

	case "X":
		// last field is the subcircuit name
		if len(fields) < 3 {
			return nil, errors.Errorf("instance %s needs nodes and a subckt name", name)
		}
		return NewInstance(fields[len(fields)-1], fields[1:len(fields)-1]...), nil

	default:
		return nil, errors.Errorf("unsupported element %s", name)
	}
}

func buildSource(fields []string, voltage bool) (device.Device, error) {
	name := fields[0]
	if len(fields) < 4 {
		return nil, errors.Errorf("source %s needs two nodes and a value", name)
	}
	n1, n2 := fields[1], fields[2]

	spec := strings.Join(fields[3:], " ")
	spec = strings.ReplaceAll(spec, "(", " ( ")
	spec = strings.ReplaceAll(spec, ")", " ) ")
	words := strings.Fields(spec)

	kind := strings.ToUpper(words[0])
	args, err := sourceArgs(words[1:])
	if err != nil {
		return nil, errors.Wrapf(err, "source %s", name)
	}

	var stim stimulus.Stimulus
	switch kind {
	case "DC":
		if len(args) != 1 {
			return nil, errors.Errorf("source %s: DC needs one value", name)
		}
		if voltage {
			return device.NewVoltageSource(n1, n2, args[0]), nil
		}
		return device.NewCurrentSource(n1, n2, args[0]), nil

	case "SIN":
		if len(args) < 3 {
			return nil, errors.Errorf("source %s: SIN needs offset, amplitude and frequency", name)
		}
		a := pad(args, 6)
		stim, err = stimulus.NewSin(a[0], a[1], a[2], a[3], a[4], a[5])

	case "PULSE":
		a := pad(args, 7)
		stim, err = stimulus.NewPulse(a[0], a[1], a[2], a[3], a[4], a[5], a[6])

	case "PWL":
		if len(args) < 4 || len(args)%2 != 0 {
			return nil, errors.Errorf("source %s: PWL needs (t, v) pairs", name)
		}
		pts := make([]stimulus.PwlPoint, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			pts = append(pts, stimulus.PwlPoint{T: args[i], V: args[i+1]})
		}
		stim, err = stimulus.NewPwl(pts)

	case "EXP":
		a := pad(args, 6)
		stim, err = stimulus.NewExp(a[0], a[1], a[2], a[3], a[4], a[5])

	default:
		// bare numeric value means DC
		if v, verr := ParseValue(kind); verr == nil && len(words) == 1 {
			if voltage {
				return device.NewVoltageSource(n1, n2, v), nil
			}
			return device.NewCurrentSource(n1, n2, v), nil
		}
		return nil, errors.Errorf("source %s: unsupported spec %s", name, words[0])
	}
	if err != nil {
		return nil, errors.Wrapf(err, "source %s", name)
	}
	if voltage {
		return device.NewVoltageSourceStim(n1, n2, stim), nil
	}
	return device.NewCurrentSourceStim(n1, n2, stim), nil
}

func sourceArgs(words []string) ([]float64, error) {
	var args []float64
	for _, w := range words {
		if w == "(" || w == ")" {
			continue
		}
		v, err := ParseValue(w)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func pad(args []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, args)
	return out
}
