// Package match implements the Protocol Matcher (spec §4.5): it aligns
// each port group against the Library Index's Catalog, scores every
// candidate (AbstractionDefinition, side) pair, and emits the accepted
// BusInterface assignments plus whatever ports no candidate explains.
package match

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jtbus/sv2ipxact/library"
	"github.com/jtbus/sv2ipxact/model"
	"github.com/jtbus/sv2ipxact/portgroup"
	"github.com/jtbus/sv2ipxact/runreport"
)

// Config holds the five scoring tunables of §4.5.
type Config struct {
	Threshold       float64
	WRequired       float64
	WOptional       float64
	WPenalty        float64
	AmbiguityMargin float64
}

// DefaultConfig returns §4.5's documented defaults.
func DefaultConfig() Config {
	return Config{Threshold: 0.6, WRequired: 1.0, WOptional: 0.3, WPenalty: 0.5, AmbiguityMargin: 0.05}
}

// WithOverride applies a library weights.yaml override (§4.3) on top of
// c, leaving any field the override doesn't set untouched.
func (c Config) WithOverride(o *library.WeightOverride) Config {
	if o == nil {
		return c
	}
	out := c
	if o.Threshold != nil {
		out.Threshold = *o.Threshold
	}
	if o.WRequired != nil {
		out.WRequired = *o.WRequired
	}
	if o.WOptional != nil {
		out.WOptional = *o.WOptional
	}
	if o.WPenalty != nil {
		out.WPenalty = *o.WPenalty
	}
	if o.AmbiguityMargin != nil {
		out.AmbiguityMargin = *o.AmbiguityMargin
	}
	return out
}

// Result is the matcher's output: the accepted BusInterface assignments
// and every port that ended up in none of them.
type Result struct {
	Interfaces []model.BusInterface
	Residual   []model.Port
}

// Match runs the matcher over groups against cat, using cfg as the base
// tunables (overridden per-VLNV from overrides, §4.3's weights.yaml).
func Match(mod *model.Module, groups portgroup.Result, cat model.Catalog, cfg Config, overrides map[model.VLNV]library.WeightOverride, rep *runreport.Report) Result {
	res := Result{Residual: append([]model.Port{}, groups.Residual...)}

	sortedVLNVs := sortedKeys(cat)

	for _, g := range groups.Groups {
		switch {
		case g.IsClock:
			if bi, ok := matchClockReset(g, cat, sortedVLNVs, true); ok {
				res.Interfaces = append(res.Interfaces, bi)
			} else {
				rep.Add(runreport.NoMatch, 0, 0, "clock group %q: no clock bus definition in catalog", g.Name)
				res.Residual = append(res.Residual, g.Ports...)
			}
			continue
		case g.IsReset:
			if bi, ok := matchClockReset(g, cat, sortedVLNVs, false); ok {
				res.Interfaces = append(res.Interfaces, bi)
			} else {
				rep.Add(runreport.NoMatch, 0, 0, "reset group %q: no reset bus definition in catalog", g.Name)
				res.Residual = append(res.Residual, g.Ports...)
			}
			continue
		}

		cands := candidatesFor(g, cat, sortedVLNVs, cfg, overrides)
		sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

		if len(cands) == 0 || cands[0].score < cands[0].cfg.Threshold || cands[0].align.matchedRequired == 0 {
			rep.Add(runreport.NoMatch, 0, 0, "group %q: no candidate reached threshold", g.Name)
			res.Residual = append(res.Residual, g.Ports...)
			continue
		}

		best := cands[0]
		if len(cands) > 1 && best.score-cands[1].score <= best.cfg.AmbiguityMargin {
			rep.Add(runreport.AmbiguousMatch, 0, 0,
				"group %q: %s/%s (score %.3f) is ambiguous with %s/%s (score %.3f)",
				g.Name, best.vlnv, best.side, best.score, cands[1].vlnv, cands[1].side, cands[1].score)
		}

		bi := buildBusInterface(g, mod, best)
		res.Interfaces = append(res.Interfaces, bi)

		mapped := map[string]bool{}
		for _, pm := range bi.PortMaps {
			mapped[pm.PhysicalName] = true
		}
		for _, p := range g.Ports {
			if !mapped[p.Name] {
				res.Residual = append(res.Residual, p)
			}
		}
	}

	return res
}

func sortedKeys(cat model.Catalog) []model.VLNV {
	keys := make([]model.VLNV, 0, len(cat))
	for k := range cat {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func normalize(s string) string {
	return strings.ReplaceAll(strings.ToUpper(s), "_", "")
}

// --- clock/reset -------------------------------------------------------

func matchClockReset(g portgroup.Group, cat model.Catalog, keys []model.VLNV, isClock bool) (model.BusInterface, bool) {
	for _, k := range keys {
		entry := cat[k]
		if (isClock && !entry.Bus.IsClockBus) || (!isClock && !entry.Bus.IsResetBus) {
			continue
		}

		bi := model.BusInterface{Name: g.Name, Bus: entry.Bus, Role: model.RoleSystem}
		if len(entry.Abstractions) > 0 && len(entry.Abstractions[0].LogicalPorts) > 0 {
			bi.Abstraction = entry.Abstractions[0]
			bi.PortMaps = []model.PortMap{{
				LogicalName:  entry.Abstractions[0].LogicalPorts[0].Name,
				PhysicalName: g.Ports[0].Name,
			}}
		}
		if isClock {
			bi.Params = []model.BusParam{{Name: "isClock", Value: "true"}}
		} else {
			bi.Params = []model.BusParam{
				{Name: "isReset", Value: "true"},
				{Name: "POLARITY", Value: polarityOf(g.Ports[0].Name)},
			}
		}
		return bi, true
	}
	return model.BusInterface{}, false
}

func polarityOf(name string) string {
	if strings.HasSuffix(strings.ToLower(name), "n") {
		return "ACTIVE_LOW"
	}
	return "ACTIVE_HIGH"
}

// --- alignment & scoring -------------------------------------------------

type alignment struct {
	matchedRequired, matchedOptional   int
	totalRequired, totalOptional       int
	directionMismatches, widthMismatches int
	portMaps                           []model.PortMap
}

func sideDescriptor(lp model.LogicalPort, side model.BusRole) *model.SideDescriptor {
	if side == model.RoleMaster {
		return lp.Master
	}
	return lp.Slave
}

func portLiteralWidth(p model.Port) (int, bool) {
	if p.Width == nil {
		return 1, true
	}
	return p.Width.Literal()
}

// alignGroup aligns g's physical ports to ad's logical ports on side,
// per §4.5's suffix-candidate matching.
func alignGroup(g portgroup.Group, ad model.AbstractionDefinition, side model.BusRole) alignment {
	var al alignment
	for _, lp := range ad.LogicalPorts {
		sd := sideDescriptor(lp, side)
		if sd == nil || sd.Presence == model.PresenceIllegal {
			continue
		}
		if sd.Presence == model.PresenceRequired {
			al.totalRequired++
		} else {
			al.totalOptional++
		}
	}

	used := map[string]bool{}
	for _, p := range g.Ports {
		toks := portgroup.Tokenize(p.Name)
		bestK := 0
		var bestLP *model.LogicalPort
		tryTokens := func(ts []string) {
			for k := 1; k <= len(ts); k++ {
				suffix := normalize(strings.Join(ts[len(ts)-k:], ""))
				for i := range ad.LogicalPorts {
					lp := &ad.LogicalPorts[i]
					if normalize(lp.Name) == suffix && k > bestK {
						bestK = k
						bestLP = lp
					}
				}
			}
		}
		tryTokens(toks)
		if bestLP == nil {
			if stripped := portgroup.StripTrailingSuffixToken(toks); stripped != nil {
				tryTokens(stripped)
			}
		}
		if bestLP == nil || used[bestLP.Name] {
			continue
		}
		sd := sideDescriptor(*bestLP, side)
		if sd == nil || sd.Presence == model.PresenceIllegal {
			continue
		}
		used[bestLP.Name] = true

		if string(p.Direction) != string(sd.Direction) {
			al.directionMismatches++
		}
		if sdLit, ok := sd.Width.Literal(); ok {
			if pLit, ok2 := portLiteralWidth(p); ok2 && sdLit != pLit {
				al.widthMismatches++
			}
		}
		if sd.Presence == model.PresenceRequired {
			al.matchedRequired++
		} else {
			al.matchedOptional++
		}
		al.portMaps = append(al.portMaps, model.PortMap{LogicalName: bestLP.Name, PhysicalName: p.Name})
	}
	return al
}

func (al alignment) score(cfg Config) (float64, bool) {
	denom := cfg.WRequired*float64(al.totalRequired) + cfg.WOptional*float64(al.totalOptional)
	if denom <= 0 {
		return 0, false
	}
	num := cfg.WRequired*float64(al.matchedRequired) + cfg.WOptional*float64(al.matchedOptional) -
		cfg.WPenalty*float64(al.directionMismatches+al.widthMismatches)
	if num < 0 {
		num = 0
	}
	return num / denom, true
}

type candidate struct {
	vlnv  model.VLNV
	entry *model.CatalogEntry
	ad    model.AbstractionDefinition
	side  model.BusRole
	align alignment
	score float64
	cfg   Config
}

func candidatesFor(g portgroup.Group, cat model.Catalog, keys []model.VLNV, cfg Config, overrides map[model.VLNV]library.WeightOverride) []candidate {
	var out []candidate
	for _, k := range keys {
		entry := cat[k]
		if entry.Bus.IsClockBus || entry.Bus.IsResetBus {
			continue
		}
		effCfg := cfg.WithOverride(override(overrides, k))
		for _, ad := range entry.Abstractions {
			for _, side := range []model.BusRole{model.RoleMaster, model.RoleSlave} {
				al := alignGroup(g, ad, side)
				score, ok := al.score(effCfg)
				if !ok {
					continue
				}
				out = append(out, candidate{vlnv: k, entry: entry, ad: ad, side: side, align: al, score: score, cfg: effCfg})
			}
		}
	}
	return out
}

func override(overrides map[model.VLNV]library.WeightOverride, k model.VLNV) *library.WeightOverride {
	if overrides == nil {
		return nil
	}
	if o, ok := overrides[k]; ok {
		return &o
	}
	return nil
}

// --- BusInterface assembly ----------------------------------------------

func buildBusInterface(g portgroup.Group, mod *model.Module, best candidate) model.BusInterface {
	bi := model.BusInterface{
		Name:        g.Name,
		Bus:         best.entry.Bus,
		Abstraction: best.ad,
		Role:        best.side,
		PortMaps:    orderByDeclaration(best.ad, best.align.portMaps),
	}

	for _, paramName := range best.entry.Bus.ParamNames {
		if p, ok := mod.ParamByNormalizedToken(paramName); ok {
			bi.Params = append(bi.Params, model.BusParam{Name: paramName, Value: p.Name})
		}
	}

	if best.entry.Bus.IsAddressable {
		dataWidth := paramIntDefault(mod, "DATA_WIDTH", 32)
		if best.side == model.RoleSlave {
			bi.MemoryMap = &model.MemoryMap{
				Name:         "MM_" + g.Name,
				AddressBlock: "BLK_" + g.Name,
				BaseAddress:  0,
				Range:        4096,
				Width:        dataWidth,
				Usage:        "register",
			}
		} else {
			addrWidth := paramIntDefault(mod, "ADDR_WIDTH", 32)
			bi.AddressSpace = &model.AddressSpace{
				Name:  "AS_" + g.Name,
				Range: uint64(1) << uint(addrWidth),
				Width: dataWidth,
			}
		}
	}

	return bi
}

// orderByDeclaration reorders portMaps into ad's logical-port
// declaration order, per §4.6's determinism requirement.
func orderByDeclaration(ad model.AbstractionDefinition, maps []model.PortMap) []model.PortMap {
	byLogical := map[string]model.PortMap{}
	for _, pm := range maps {
		byLogical[pm.LogicalName] = pm
	}
	var out []model.PortMap
	for _, lp := range ad.LogicalPorts {
		if pm, ok := byLogical[lp.Name]; ok {
			out = append(out, pm)
		}
	}
	return out
}

func paramIntDefault(mod *model.Module, token string, fallback int) int {
	if p, ok := mod.ParamByNormalizedToken(token); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Default)); err == nil {
			return n
		}
	}
	return fallback
}
