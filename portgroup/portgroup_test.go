package portgroup

import (
	"testing"

	"github.com/jtbus/sv2ipxact/model"
)

func port(name string, dir model.Direction) model.Port {
	return model.Port{Name: name, Direction: dir}
}

func TestTokenizeUnderscoreAndCamel(t *testing.T) {
	cases := map[string][]string{
		"M_AXI_AWADDR": {"M", "AXI", "AWADDR"},
		"s_axi_rdata":  {"S", "AXI", "RDATA"},
		"AXIBusValid":  {"AXI", "BUS", "VALID"},
		"clk":          {"CLK"},
	}
	for name, want := range cases {
		got := Tokenize(name)
		if len(got) != len(want) {
			t.Errorf("Tokenize(%q) = %v, want %v", name, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Tokenize(%q) = %v, want %v", name, got, want)
				break
			}
		}
	}
}

func TestInferGroupsAxiSignalsByPrefix(t *testing.T) {
	m := &model.Module{
		Name: "dut",
		Ports: []model.Port{
			port("clk", model.DirIn),
			port("rst_n", model.DirIn),
			port("M_AXI_AWADDR", model.DirOut),
			port("M_AXI_AWVALID", model.DirOut),
			port("M_AXI_AWREADY", model.DirIn),
			port("irq", model.DirOut),
		},
	}

	res := Infer(m)

	var clkGroup, rstGroup, axiGroup *Group
	for i := range res.Groups {
		g := &res.Groups[i]
		switch {
		case g.IsClock:
			clkGroup = g
		case g.IsReset:
			rstGroup = g
		case g.Name == "M_AXI":
			axiGroup = g
		}
	}

	if clkGroup == nil || len(clkGroup.Ports) != 1 || clkGroup.Ports[0].Name != "clk" {
		t.Errorf("expected a dedicated clk group, got %v", clkGroup)
	}
	if rstGroup == nil || len(rstGroup.Ports) != 1 {
		t.Errorf("expected a dedicated reset group, got %v", rstGroup)
	}
	if axiGroup == nil {
		t.Fatal("expected an M_AXI group")
	}
	if len(axiGroup.Ports) != 3 {
		t.Errorf("expected 3 ports in M_AXI group, got %d", len(axiGroup.Ports))
	}

	found := false
	for _, p := range res.Residual {
		if p.Name == "irq" {
			found = true
		}
	}
	if !found {
		t.Error("expected irq to land in the residual")
	}
}

func TestInferSplitsDisjointSingleTokenGroups(t *testing.T) {
	m := &model.Module{
		Ports: []model.Port{
			port("AXI_M_AWADDR", model.DirOut),
			port("AXI_M_AWVALID", model.DirOut),
			port("AXI_S_ARADDR", model.DirIn),
			port("AXI_S_ARVALID", model.DirIn),
		},
	}

	res := Infer(m)
	names := map[string]int{}
	for _, g := range res.Groups {
		names[g.Name] = len(g.Ports)
	}

	if names["AXI_M"] != 2 {
		t.Errorf("expected AXI_M group of 2, got %d", names["AXI_M"])
	}
	if names["AXI_S"] != 2 {
		t.Errorf("expected AXI_S group of 2, got %d", names["AXI_S"])
	}
	if _, ok := names["AXI"]; ok {
		t.Error("did not expect a collapsed single AXI group once the longer prefix qualifies")
	}
}

func TestInferSingleTokenWellKnownRootGroupsWithoutTwoTokenPrefix(t *testing.T) {
	m := &model.Module{
		Ports: []model.Port{
			port("AXI_AWADDR", model.DirOut),
			port("AXI_AWVALID", model.DirOut),
		},
	}

	res := Infer(m)
	if len(res.Groups) != 1 || res.Groups[0].Name != "AXI" {
		t.Fatalf("expected a single-token AXI group, got %v", res.Groups)
	}
}

func TestInferUngroupedSingleSignalGoesToResidual(t *testing.T) {
	m := &model.Module{
		Ports: []model.Port{
			port("debug_probe", model.DirOut),
		},
	}

	res := Infer(m)
	if len(res.Groups) != 0 {
		t.Errorf("expected no groups, got %v", res.Groups)
	}
	if len(res.Residual) != 1 {
		t.Errorf("expected the lone port in residual, got %v", res.Residual)
	}
}

func TestInferInterfaceRefPortsAlwaysResidual(t *testing.T) {
	m := &model.Module{
		Ports: []model.Port{
			port("M_AXI_AWADDR", model.DirOut),
			{Name: "bus_m", IsInterfaceRef: true, Direction: model.DirInout},
		},
	}
	res := Infer(m)
	for _, g := range res.Groups {
		for _, p := range g.Ports {
			if p.IsInterfaceRef {
				t.Error("interface-reference port must not be grouped")
			}
		}
	}
	found := false
	for _, p := range res.Residual {
		if p.Name == "bus_m" {
			found = true
		}
	}
	if !found {
		t.Error("expected bus_m in residual")
	}
}

func TestSuffixStrippedPrefixCandidate(t *testing.T) {
	cands := portCandidates("M_AXI_AWADDR_o")
	wantLongest := "M_AXI_AWADDR_O"
	if cands[0].joined != wantLongest {
		t.Fatalf("expected longest candidate %q first, got %q", wantLongest, cands[0].joined)
	}
	hasStripped := false
	for _, c := range cands {
		if c.joined == "M_AXI_AWADDR" {
			hasStripped = true
		}
	}
	if !hasStripped {
		t.Error("expected suffix-stripped M_AXI_AWADDR candidate")
	}
}
