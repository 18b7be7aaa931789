package netlist

import (
	"math"
	"testing"

	"gospyce/pkg/device"
	"gospyce/pkg/matrix"
)

func mustResistor(t *testing.T, n1, n2 string, value float64) *device.Resistor {
	t.Helper()
	r, err := device.NewResistor(n1, n2, value)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNodeTable(t *testing.T) {
	nl := New("nodes")

	for _, alias := range []string{"0", "gnd", "GND", "ground", "Ground"} {
		if idx := nl.NodeIndex(alias); idx != 0 {
			t.Fatalf("ground alias %q -> %d", alias, idx)
		}
	}

	a := nl.NodeIndex("a")
	b := nl.NodeIndex("b")
	if a != 1 || b != 2 {
		t.Fatalf("first-reference order broken: a=%d b=%d", a, b)
	}
	if nl.NodeIndex("a") != a {
		t.Fatal("re-resolving a net changed its index")
	}

	br := nl.InternalNode("L1")
	if !nl.IsInternal(br) {
		t.Fatalf("internal node %d not marked internal", br)
	}
	if nl.IsInternal(a) {
		t.Fatal("external node marked internal")
	}
	if nl.NumNodes() != 3 {
		t.Fatalf("NumNodes = %d, want 3", nl.NumNodes())
	}
}

func TestDuplicateDeviceName(t *testing.T) {
	nl := New("dup")
	if err := nl.Device("R1", mustResistor(t, "1", "0", 100)); err != nil {
		t.Fatal(err)
	}
	if err := nl.Device("R1", mustResistor(t, "2", "0", 100)); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestDeviceOrderPreserved(t *testing.T) {
	nl := New("order")
	names := []string{"R3", "R1", "R2"}
	for _, n := range names {
		nl.MustDevice(n, mustResistor(t, "1", "0", 100))
	}
	for i, dev := range nl.Devices() {
		if dev.Name() != names[i] {
			t.Fatalf("device %d is %s, want %s", i, dev.Name(), names[i])
		}
	}
}

func TestStampAndSolveDivider(t *testing.T) {
	nl := New("divider")
	nl.MustDevice("V1", device.NewVoltageSource("in", "0", 9))
	nl.MustDevice("R1", mustResistor(t, "in", "mid", 1000))
	nl.MustDevice("R2", mustResistor(t, "mid", "0", 2000))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}
	for _, dev := range nl.Devices() {
		if err := dev.Start(1e-6); err != nil {
			t.Fatal(err)
		}
	}

	sys, err := matrix.NewSystem(nl.NumNodes())
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Destroy()
	sys.SetupElements()

	st := &device.Status{Time: 0, TimeStep: 1e-6}
	for _, dev := range nl.Devices() {
		if err := dev.Step(st); err != nil {
			t.Fatal(err)
		}
	}
	nl.Stamp(sys)
	x, err := sys.Solve()
	if err != nil {
		t.Fatal(err)
	}

	sol := nl.Solution(x)
	if math.Abs(sol["V(in)"]-9) > 1e-9 {
		t.Fatalf("V(in) = %g, want 9", sol["V(in)"])
	}
	if math.Abs(sol["V(mid)"]-6) > 1e-9 {
		t.Fatalf("V(mid) = %g, want 6", sol["V(mid)"])
	}

	// the source branch current equals the divider current, negated
	wantI := -(9.0 - 6.0) / 1000.0
	if math.Abs(sol["I(V1)"]-wantI) > 1e-12 {
		t.Fatalf("I(V1) = %g, want %g", sol["I(V1)"], wantI)
	}

	// internal branch nodes are not reported as voltages
	if _, ok := sol["V(V1#branch)"]; ok {
		t.Fatal("internal node leaked into the solution")
	}
}

func TestMutualRegisteredBeforeInductors(t *testing.T) {
	nl := New("coupled order")
	k, err := device.NewMutual("L1", "L2", 0.9)
	if err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("K1", k)
	nl.MustDevice("V1", device.NewVoltageSource("in", "0", 1))
	l1, err := device.NewInductor("in", "0", 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("L1", l1)
	l2, err := device.NewInductor("sec", "0", 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("L2", l2)
	nl.MustDevice("RL", mustResistor(t, "sec", "0", 1000))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}
	for _, dev := range nl.Devices() {
		if err := dev.Start(1e-6); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(k.Nodes()); got != 6 {
		t.Fatalf("coupling spans %d nodes, want 6", got)
	}

	sys, err := matrix.NewSystem(nl.NumNodes())
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Destroy()
	sys.SetupElements()

	st := &device.Status{TimeStep: 1e-6, History: make([]float64, nl.NumNodes()+1)}
	for _, dev := range nl.Devices() {
		if err := dev.Step(st); err != nil {
			t.Fatal(err)
		}
	}
	nl.Stamp(sys)
	if _, err := sys.Solve(); err != nil {
		t.Fatal(err)
	}
}

func TestRestampAfterClear(t *testing.T) {
	nl := New("restamp")
	nl.MustDevice("V1", device.NewVoltageSource("in", "0", 1))
	nl.MustDevice("R1", mustResistor(t, "in", "0", 100))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}
	for _, dev := range nl.Devices() {
		if err := dev.Start(1e-6); err != nil {
			t.Fatal(err)
		}
	}

	sys, err := matrix.NewSystem(nl.NumNodes())
	if err != nil {
		t.Fatal(err)
	}
	defer sys.Destroy()
	sys.SetupElements()

	// stamping twice after Clear must not accumulate
	nl.Stamp(sys)
	nl.Stamp(sys)
	x, err := sys.Solve()
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x[nl.NodeIndex("in")]-1) > 1e-12 {
		t.Fatalf("V(in) = %g, want 1", x[nl.NodeIndex("in")])
	}
}
