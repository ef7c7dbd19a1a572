package ipxact

import (
	"strings"
	"testing"

	"github.com/jtbus/sv2ipxact/model"
)

func sampleModule() *model.Module {
	w32 := model.WidthExpr{Raw: "31:0"}
	return &model.Module{
		Name: "dut",
		Parameters: []model.Parameter{
			{Name: "DATA_WIDTH", Default: "64"},
			{Name: "HIDDEN", Default: "1", IsLocal: true},
		},
		Ports: []model.Port{
			{Name: "clk", Direction: model.DirIn},
			{Name: "m_bus_addr", Direction: model.DirOut, Width: &w32, Endian: model.BigEndian},
			{Name: "m_bus_valid", Direction: model.DirOut},
			{Name: "unused_sig", Direction: model.DirIn},
		},
		SourceFile: "dut.sv",
	}
}

func sampleInterface() model.BusInterface {
	vlnv := model.VLNV{Vendor: "acme.com", Library: "bus", Name: "simplebus", Version: "1.0"}
	absVlnv := model.VLNV{Vendor: "acme.com", Library: "bus", Name: "simplebus_rtl", Version: "1.0"}
	return model.BusInterface{
		Name: "m_bus",
		Bus:  model.BusDefinition{VLNV: vlnv, IsAddressable: true},
		Abstraction: model.AbstractionDefinition{
			VLNV: absVlnv, BusRef: vlnv,
		},
		Role: model.RoleMaster,
		PortMaps: []model.PortMap{
			{LogicalName: "ADDR", PhysicalName: "m_bus_addr"},
			{LogicalName: "VALID", PhysicalName: "m_bus_valid"},
		},
		AddressSpace: &model.AddressSpace{Name: "AS_m_bus", Range: 4294967296, Width: 64},
		Params:       []model.BusParam{{Name: "DATA_WIDTH", Value: "DATA_WIDTH"}},
	}
}

func TestRender2014EveryPortEmittedOnce(t *testing.T) {
	doc := Document{
		Module:     sampleModule(),
		Interfaces: []model.BusInterface{sampleInterface()},
		SourceFile: "dut.sv",
		Vendor:     "acme.com", Library: "user", Version: "1.0",
	}
	out := Render(doc, Rev2014)

	start := strings.Index(out, "<ipxact:ports>")
	end := strings.Index(out, "</ipxact:ports>")
	if start < 0 || end < start {
		t.Fatalf("expected a model/ports section, output:\n%s", out)
	}
	portsSection := out[start:end]
	for _, name := range []string{"clk", "m_bus_addr", "m_bus_valid", "unused_sig"} {
		if strings.Count(portsSection, "<ipxact:name>"+name+"</ipxact:name>") != 1 {
			t.Errorf("expected port %q to appear exactly once under model/ports, output:\n%s", name, out)
		}
	}
	if !strings.Contains(out, `xmlns:ipxact="http://www.accellera.org/XMLSchema/IPXACT/1685-2014"`) {
		t.Error("expected 2014 namespace")
	}
	if strings.Contains(out, "HIDDEN") {
		t.Error("localparam must not be externalized as a component parameter")
	}
}

func TestRender2009UsesSpiritPrefix(t *testing.T) {
	doc := Document{Module: sampleModule(), Interfaces: []model.BusInterface{sampleInterface()}}
	out := Render(doc, Rev2009)

	if !strings.Contains(out, "<spirit:component") {
		t.Error("expected spirit-prefixed root for 2009")
	}
	if !strings.Contains(out, "1685-2009") {
		t.Error("expected 2009 schema URL")
	}
	if strings.Contains(out, "ipxact:") {
		t.Error("2009 output must not mix in ipxact: prefixed elements")
	}
}

func TestRenderBusInterfaceShape(t *testing.T) {
	doc := Document{Module: sampleModule(), Interfaces: []model.BusInterface{sampleInterface()}}
	out := Render(doc, Rev2022)

	if !strings.Contains(out, `<ipxact:busInterface>`) {
		t.Fatal("expected a busInterface element")
	}
	if !strings.Contains(out, "<ipxact:master") && !strings.Contains(out, "<ipxact:master/>") {
		t.Error("expected a master role element")
	}
	if !strings.Contains(out, `ipxact:addressSpaceRef="AS_m_bus"`) {
		t.Error("expected addressSpaceRef attribute referencing the AddressSpace")
	}
	if !strings.Contains(out, "<ipxact:addressSpace>") {
		t.Error("expected the addressSpaces container populated from the interface")
	}
}

func TestRenderNoInterfacesOmitsBusInterfacesContainer(t *testing.T) {
	doc := Document{Module: sampleModule()}
	out := Render(doc, Rev2022)

	if strings.Contains(out, "busInterfaces") {
		t.Error("expected no busInterfaces container when no interfaces were matched")
	}
	if !strings.Contains(out, "<ipxact:name>clk</ipxact:name>") {
		t.Error("ports must still be emitted with no matched interfaces")
	}
}

func TestRenderFileSetReferencesSource(t *testing.T) {
	doc := Document{Module: sampleModule(), SourceFile: "rtl/dut.sv"}
	out := Render(doc, Rev2022)

	if !strings.Contains(out, "<ipxact:name>rtl/dut.sv</ipxact:name>") {
		t.Error("expected the source file path recorded in the fileSet")
	}
	if !strings.Contains(out, "systemVerilogSource") {
		t.Error("expected fileType systemVerilogSource")
	}
}

func TestRenderVectorEndiannessPreserved(t *testing.T) {
	doc := Document{Module: sampleModule()}
	out := Render(doc, Rev2022)

	if !strings.Contains(out, "<ipxact:left>31</ipxact:left>") || !strings.Contains(out, "<ipxact:right>0</ipxact:right>") {
		t.Errorf("expected big-endian [31:0] vector bounds, output:\n%s", out)
	}
}
