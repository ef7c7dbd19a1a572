package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jtbus/sv2ipxact/config"
	"github.com/jtbus/sv2ipxact/ipxact"
	"github.com/jtbus/sv2ipxact/runreport"
)

const busDefXML = `<?xml version="1.0"?>
<spirit:busDefinition xmlns:spirit="http://www.spiritconsortium.org/XMLSchema/SPIRIT/1685-2009">
	<spirit:vendor>acme.com</spirit:vendor>
	<spirit:library>bus</spirit:library>
	<spirit:name>simplebus</spirit:name>
	<spirit:version>1.0</spirit:version>
	<spirit:isAddressable>true</spirit:isAddressable>
</spirit:busDefinition>`

const absDefXML = `<?xml version="1.0"?>
<spirit:abstractionDefinition xmlns:spirit="http://www.spiritconsortium.org/XMLSchema/SPIRIT/1685-2009">
	<spirit:vendor>acme.com</spirit:vendor>
	<spirit:library>bus</spirit:library>
	<spirit:name>simplebus_rtl</spirit:name>
	<spirit:version>1.0</spirit:version>
	<spirit:busType spirit:vendor="acme.com" spirit:library="bus" spirit:name="simplebus" spirit:version="1.0"/>
	<spirit:ports>
		<spirit:port>
			<spirit:logicalName>ADDR</spirit:logicalName>
			<spirit:wire>
				<spirit:onMaster>
					<spirit:presence>required</spirit:presence>
					<spirit:direction>out</spirit:direction>
					<spirit:width>32</spirit:width>
				</spirit:onMaster>
			</spirit:wire>
		</spirit:port>
		<spirit:port>
			<spirit:logicalName>VALID</spirit:logicalName>
			<spirit:wire>
				<spirit:onMaster>
					<spirit:presence>required</spirit:presence>
					<spirit:direction>out</spirit:direction>
					<spirit:width>1</spirit:width>
				</spirit:onMaster>
			</spirit:wire>
		</spirit:port>
	</spirit:ports>
</spirit:abstractionDefinition>`

const fixtureSV = `module dut (
	input  wire        clk,
	output wire [31:0] m_bus_addr,
	output wire        m_bus_valid
);
endmodule`

func writeFixtureLibTree(t *testing.T, root string) {
	t.Helper()
	dir := filepath.Join(root, "acme.com", "bus", "simplebus", "1.0")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "simplebus.xml"), []byte(busDefXML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "simplebus_rtl.xml"), []byte(absDefXML), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunPipelineMatchesGroupAgainstLibrary(t *testing.T) {
	dir := t.TempDir()
	libDir := filepath.Join(dir, "libs")
	writeFixtureLibTree(t, libDir)

	svPath := filepath.Join(dir, "dut.sv")
	if err := os.WriteFile(svPath, []byte(fixtureSV), 0o644); err != nil {
		t.Fatal(err)
	}

	a := sharedArgs{Input: svPath, LibsDir: libDir, ConfigPath: filepath.Join(dir, "nonexistent.toml")}
	res, err := runPipeline(a, config.Overrides{LibsDir: libDir, LibsDirSet: true})
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if res.mod.Name != "dut" {
		t.Errorf("expected module name dut, got %q", res.mod.Name)
	}
	if len(res.matched.Interfaces) != 1 {
		t.Fatalf("expected 1 matched interface, got %d (residual=%v)", len(res.matched.Interfaces), res.matched.Residual)
	}
}

func TestRunPipelineMissingFileIsFatalSourceIoError(t *testing.T) {
	a := sharedArgs{Input: filepath.Join(t.TempDir(), "missing.sv")}
	_, err := runPipeline(a, config.Overrides{})
	if err == nil {
		t.Fatal("expected an error for a missing input file")
	}
	kind, ok := runreport.KindOf(err)
	if !ok || kind != runreport.SourceIoError {
		t.Errorf("expected SourceIoError, got %v (ok=%v)", kind, ok)
	}
	if exitCodeFor(err) != 1 {
		t.Errorf("expected exit code 1, got %d", exitCodeFor(err))
	}
}

func TestRunPipelineNoModuleIsFatal(t *testing.T) {
	dir := t.TempDir()
	svPath := filepath.Join(dir, "empty.sv")
	if err := os.WriteFile(svPath, []byte("// just a comment, no module here\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	a := sharedArgs{Input: svPath}
	_, err := runPipeline(a, config.Overrides{})
	if err == nil {
		t.Fatal("expected a NoModuleFound error")
	}
	if kind, ok := runreport.KindOf(err); !ok || kind != runreport.NoModuleFound {
		t.Errorf("expected NoModuleFound, got %v", kind)
	}
}

func TestResolveRevisionDefaultsTo2014(t *testing.T) {
	rev, err := resolveRevision("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rev != ipxact.Rev2014 {
		t.Errorf("expected default revision 2014, got %v", rev)
	}
}

func TestResolveRevisionRejectsUnknown(t *testing.T) {
	if _, err := resolveRevision("1776"); err == nil {
		t.Error("expected an error for an unknown revision")
	}
}

func TestDefaultOutputPathReplacesExtension(t *testing.T) {
	if got := defaultOutputPath("core/dut.sv"); got != "core/dut.xml" {
		t.Errorf("expected core/dut.xml, got %q", got)
	}
	if got := defaultOutputPath("core/dut.v"); got != "core/dut.xml" {
		t.Errorf("expected core/dut.xml, got %q", got)
	}
}

const robustFixtureSV = "`define FOO 1\n" +
	"module dut #(\n" +
	"\tparameter WIDTH = 8,\n" +
	"\tparameter AW = 4\n" +
	") (\n" +
	"\tinput  wire             clk,\n" +
	"\tinput  wire             rst_n,\n" +
	"\tinput  wire [WIDTH-1:0] data_in,\n" +
	"\tinput  wire             valid\n" +
	"`ifdef USE_OUTPUT\n" +
	"\t,\n" +
	"\toutput wire [WIDTH-1:0] data_out\n" +
	"`endif\n" +
	");\n" +
	"/* a block comment that mentions input wire\n" +
	"   just to make sure it is stripped */\n" +
	"endmodule\n"

// TestRunPipelineTreatsUndefinedIfdefBranchAsDropped exercises the
// preprocessor and header parser together against a module carrying a
// `define, an `ifdef USE_OUTPUT guarding an extra port, a block comment
// whose text would otherwise look like a port declaration, and a
// parameter-valued port width.
func TestRunPipelineTreatsUndefinedIfdefBranchAsDropped(t *testing.T) {
	dir := t.TempDir()
	svPath := filepath.Join(dir, "robust.sv")
	if err := os.WriteFile(svPath, []byte(robustFixtureSV), 0o644); err != nil {
		t.Fatal(err)
	}

	a := sharedArgs{Input: svPath, ConfigPath: filepath.Join(dir, "nonexistent.toml")}
	res, err := runPipeline(a, config.Overrides{})
	if err != nil {
		t.Fatalf("runPipeline: %v", err)
	}

	if len(res.mod.Parameters) != 2 || res.mod.Parameters[0].Name != "WIDTH" || res.mod.Parameters[1].Name != "AW" {
		t.Fatalf("expected parameters WIDTH, AW, got %v", res.mod.Parameters)
	}

	var names []string
	for _, p := range res.mod.Ports {
		names = append(names, p.Name)
	}
	want := []string{"clk", "rst_n", "data_in", "valid"}
	if len(names) != len(want) {
		t.Fatalf("expected ports %v, got %v", want, names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("expected port %d to be %q, got %q", i, n, names[i])
		}
	}
	for _, n := range names {
		if n == "data_out" {
			t.Error("expected data_out dropped (its `ifdef USE_OUTPUT branch is never kept)")
		}
	}

	dataIn := res.mod.Ports[2]
	if dataIn.Name != "data_in" {
		t.Fatalf("expected ports[2] to be data_in, got %q", dataIn.Name)
	}
	if dataIn.Width == nil {
		t.Fatal("expected a parametric width on data_in")
	}
	if _, isLiteral := dataIn.Width.Literal(); isLiteral {
		t.Errorf("expected a non-literal WIDTH-1:0 expression, got %+v", dataIn.Width)
	}
	if !strings.Contains(dataIn.Width.Raw, "WIDTH") || !strings.Contains(dataIn.Width.Raw, "1:0") {
		t.Errorf("expected the width expression to carry WIDTH and 1:0, got %q", dataIn.Width.Raw)
	}
}
