package model

import "testing"

func TestWidthExprLiteral(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantOk  bool
	}{
		{"32", 32, true},
		{" 8 ", 8, true},
		{"DATA_WIDTH-1", 0, false},
		{"31:0", 0, false},
	}
	for _, c := range cases {
		n, ok := WidthExpr{Raw: c.raw}.Literal()
		if ok != c.wantOk || (ok && n != c.want) {
			t.Errorf("WidthExpr{%q}.Literal() = (%d, %v), want (%d, %v)", c.raw, n, ok, c.want, c.wantOk)
		}
	}
}

func TestParamByNormalizedTokenMatchesUnderscoreAgnostic(t *testing.T) {
	m := &Module{Parameters: []Parameter{
		{Name: "AXI_DATA_WIDTH", Default: "64"},
		{Name: "HIDDEN", Default: "1", IsLocal: true},
	}}

	p, ok := m.ParamByNormalizedToken("DATA_WIDTH")
	if !ok || p.Name != "AXI_DATA_WIDTH" {
		t.Fatalf("expected AXI_DATA_WIDTH to match token DATA_WIDTH, got %+v (ok=%v)", p, ok)
	}

	if _, ok := m.ParamByNormalizedToken("HIDDEN"); ok {
		t.Error("expected a localparam to be excluded from lookup")
	}

	if _, ok := m.ParamByNormalizedToken("ADDR_WIDTH"); ok {
		t.Error("expected no match for an unrelated token")
	}
}

func TestVLNVTextRoundTrip(t *testing.T) {
	v := VLNV{Vendor: "acme.com", Library: "bus", Name: "simplebus", Version: "1.0"}

	text, err := v.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "acme.com:bus:simplebus:1.0" {
		t.Errorf("unexpected MarshalText output: %q", text)
	}

	var got VLNV
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got != v {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, v)
	}
}

func TestVLNVUnmarshalTextRejectsMalformed(t *testing.T) {
	var v VLNV
	if err := v.UnmarshalText([]byte("too:few:parts")); err == nil {
		t.Error("expected an error for a malformed VLNV string")
	}
}
