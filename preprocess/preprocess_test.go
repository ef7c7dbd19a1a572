package preprocess

import (
	"strings"
	"testing"

	"github.com/jtbus/sv2ipxact/runreport"
)

func TestProcessStripsLineAndBlockComments(t *testing.T) {
	src := "module dut (\n  input clk // the clock\n  /* a\n     block comment */\n);\nendmodule\n"
	rep := runreport.New()
	out := Process(src, rep)

	if strings.Contains(out, "the clock") || strings.Contains(out, "block comment") {
		t.Errorf("expected comments stripped, got:\n%s", out)
	}
	if strings.Count(out, "\n") != strings.Count(src, "\n") {
		t.Error("expected line count preserved")
	}
}

func TestProcessPreservesStringLiteralSlashes(t *testing.T) {
	src := `module dut; string s = "not // a comment"; endmodule`
	rep := runreport.New()
	out := Process(src, rep)

	if !strings.Contains(out, "not // a comment") {
		t.Errorf("expected string literal contents preserved verbatim, got:\n%s", out)
	}
}

func TestProcessDropsIfdefBranchTreatingMacrosAsUndefined(t *testing.T) {
	src := "module dut;\n`ifdef SOME_MACRO\nwire kept_out;\n`else\nwire kept_in;\n`endif\nendmodule\n"
	rep := runreport.New()
	out := Process(src, rep)

	if strings.Contains(out, "kept_out") {
		t.Error("expected the ifdef branch to be stripped (macro is always undefined)")
	}
	if !strings.Contains(out, "kept_in") {
		t.Error("expected the else branch to survive")
	}
}

func TestProcessKeepsIfndefBranch(t *testing.T) {
	src := "module dut;\n`ifndef SOME_MACRO\nwire kept;\n`endif\nendmodule\n"
	rep := runreport.New()
	out := Process(src, rep)

	if !strings.Contains(out, "kept") {
		t.Error("expected the ifndef branch to survive (macro is always undefined)")
	}
}

func TestProcessReportsUnbalancedIfdef(t *testing.T) {
	src := "module dut;\n`ifdef X\nwire a;\nendmodule\n"
	rep := runreport.New()
	Process(src, rep)

	if len(rep.Of(runreport.PreprocessorError)) == 0 {
		t.Error("expected a PreprocessorError for the unclosed `ifdef")
	}
}

func TestProcessExpandsUnknownBacktickRefToEmpty(t *testing.T) {
	src := "module dut;\nwire `FOO bar;\nendmodule\n"
	rep := runreport.New()
	out := Process(src, rep)

	if strings.Contains(out, "`FOO") {
		t.Errorf("expected `FOO reference stripped, got:\n%s", out)
	}
	if !strings.Contains(out, "bar") {
		t.Error("expected the rest of the line preserved")
	}
}
