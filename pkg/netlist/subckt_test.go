package netlist

import (
	"testing"

	"gospyce/pkg/device"
)

// halfBridge is a two-resistor divider fragment with ports in and out.
func halfBridge(t *testing.T) *Subckt {
	t.Helper()
	s := NewSubckt("bridge", "in", "out")
	err := s.Device("R1", func() (device.Device, error) {
		return device.NewResistor("in", "out", 1000)
	})
	if err != nil {
		t.Fatal(err)
	}
	err = s.Device("R2", func() (device.Device, error) {
		return device.NewResistor("out", "0", 1000)
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestFlattenMangling(t *testing.T) {
	nl := New("flatten")
	if err := nl.Subckt(halfBridge(t)); err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("V1", device.NewVoltageSource("a", "0", 1))
	nl.MustDevice("X1", NewInstance("bridge", "a", "b"))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}

	if nl.FindDevice("X1") != nil {
		t.Fatal("instance survived flattening")
	}
	r1 := nl.FindDevice("X1_R1")
	if r1 == nil {
		t.Fatal("inner device X1_R1 missing")
	}
	names := r1.NodeNames()
	if names[0] != "a" || names[1] != "b" {
		t.Fatalf("port mapping wrong: %v", names)
	}
	r2 := nl.FindDevice("X1_R2")
	if r2.NodeNames()[1] != "0" {
		t.Fatalf("inner ground not preserved: %v", r2.NodeNames())
	}

	// registration order: V1, then expanded inner devices
	devs := nl.Devices()
	if devs[0].Name() != "V1" || devs[1].Name() != "X1_R1" || devs[2].Name() != "X1_R2" {
		t.Fatalf("unexpected order: %s %s %s", devs[0].Name(), devs[1].Name(), devs[2].Name())
	}
}

func TestFlattenInstancesDoNotShareState(t *testing.T) {
	nl := New("two instances")
	if err := nl.Subckt(halfBridge(t)); err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("X1", NewInstance("bridge", "a", "b"))
	nl.MustDevice("X2", NewInstance("bridge", "c", "d"))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}

	a := nl.FindDevice("X1_R1")
	b := nl.FindDevice("X2_R1")
	if a == b {
		t.Fatal("instances share a device")
	}
	if a.NodeNames()[0] != "a" || b.NodeNames()[0] != "c" {
		t.Fatalf("instance nets crossed: %v %v", a.NodeNames(), b.NodeNames())
	}
}

func TestFlattenInnerNetsAreScoped(t *testing.T) {
	s := NewSubckt("cell", "p")
	err := s.Device("R1", func() (device.Device, error) {
		return device.NewResistor("p", "inner", 100)
	})
	if err != nil {
		t.Fatal(err)
	}

	nl := New("scoped")
	if err := nl.Subckt(s); err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("X1", NewInstance("cell", "n1"))
	nl.MustDevice("X2", NewInstance("cell", "n1"))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}

	n1 := nl.FindDevice("X1_R1").NodeNames()[1]
	n2 := nl.FindDevice("X2_R1").NodeNames()[1]
	if n1 == n2 {
		t.Fatalf("inner net %q shared between instances", n1)
	}
	if n1 != "X1_inner" {
		t.Fatalf("inner net name %q, want X1_inner", n1)
	}
}

func TestFlattenNested(t *testing.T) {
	inner := NewSubckt("unit", "p")
	err := inner.Device("R1", func() (device.Device, error) {
		return device.NewResistor("p", "0", 50)
	})
	if err != nil {
		t.Fatal(err)
	}

	outer := NewSubckt("pair", "p")
	if err := outer.Device("X1", func() (device.Device, error) {
		return NewInstance("unit", "p"), nil
	}); err != nil {
		t.Fatal(err)
	}

	nl := New("nested")
	if err := nl.Subckt(inner); err != nil {
		t.Fatal(err)
	}
	if err := nl.Subckt(outer); err != nil {
		t.Fatal(err)
	}
	nl.MustDevice("XA", NewInstance("pair", "top"))

	if err := nl.Connect(); err != nil {
		t.Fatal(err)
	}
	r := nl.FindDevice("XA_X1_R1")
	if r == nil {
		t.Fatal("nested expansion missing XA_X1_R1")
	}
	if r.NodeNames()[0] != "top" {
		t.Fatalf("nested port mapping wrong: %v", r.NodeNames())
	}
}

func TestFlattenErrors(t *testing.T) {
	t.Run("undefined subckt", func(t *testing.T) {
		nl := New("bad")
		nl.MustDevice("X1", NewInstance("nope", "a"))
		if err := nl.Connect(); err == nil {
			t.Fatal("expected error for undefined subckt")
		}
	})

	t.Run("port count mismatch", func(t *testing.T) {
		nl := New("bad")
		if err := nl.Subckt(halfBridge(t)); err != nil {
			t.Fatal(err)
		}
		nl.MustDevice("X1", NewInstance("bridge", "a"))
		if err := nl.Connect(); err == nil {
			t.Fatal("expected error for port count mismatch")
		}
	})

	t.Run("recursive definition", func(t *testing.T) {
		s := NewSubckt("loop", "p")
		if err := s.Device("X1", func() (device.Device, error) {
			return NewInstance("loop", "p"), nil
		}); err != nil {
			t.Fatal(err)
		}
		nl := New("bad")
		if err := nl.Subckt(s); err != nil {
			t.Fatal(err)
		}
		nl.MustDevice("X1", NewInstance("loop", "a"))
		if err := nl.Connect(); err == nil {
			t.Fatal("expected recursion error")
		}
	})
}
