// Package library implements the Library Index (spec §4.3): it walks a
// library root directory, parses each busDefinition/abstractionDefinition
// XML file it finds, links abstractions to their bus definitions by VLNV,
// and caches the result keyed by the tree's maximum mtime.
package library

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jtbus/sv2ipxact/model"
	"github.com/jtbus/sv2ipxact/runreport"
)

// Load returns the Catalog built from root, using cachePath to skip the
// directory walk when nothing has changed since the cache was written.
// rebuild forces a fresh walk regardless of cache freshness. The optional
// weight overlay (weights.yaml inside root) is returned alongside the
// catalog; nil if absent.
func Load(root, cachePath string, rebuild bool, rep *runreport.Report) (model.Catalog, map[model.VLNV]WeightOverride, error) {
	overlay := loadWeightsOverlay(root, rep)

	maxMTime, walkErr := maxTreeMTime(root)
	if walkErr != nil {
		rep.Add(runreport.LibraryIoError, 0, 0, "library root %q: %v", root, walkErr)
		return model.Catalog{}, overlay, nil
	}

	if !rebuild && cachePath != "" {
		if cat, ok := loadCache(cachePath, maxMTime); ok {
			return cat, overlay, nil
		}
	}

	cat := scanTree(root, rep)

	if cachePath != "" {
		if err := saveCache(cachePath, maxMTime, cat); err != nil {
			rep.Add(runreport.LibraryIoError, 0, 0, "writing cache %q: %v", cachePath, err)
		}
	}

	return cat, overlay, nil
}

// maxTreeMTime returns the latest modification time (Unix seconds) of any
// regular file under root. A missing root is reported as LibraryIoError by
// the caller, not here; an empty tree yields 0.
func maxTreeMTime(root string) (int64, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("not a directory")
	}

	var max int64
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries, don't abort the walk
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if m := info.ModTime().Unix(); m > max {
			max = m
		}
		return nil
	})
	return max, err
}

// scanTree walks root, parsing every file whose decoded root element is
// busDefinition or abstractionDefinition (identified by content, not by
// filename, per §6), then links abstractions to bus definitions by VLNV.
func scanTree(root string, rep *runreport.Report) model.Catalog {
	cat := model.Catalog{}
	var pendingAbs []model.AbstractionDefinition

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			rep.Add(runreport.LibraryParseWarning, 0, 0, "%s: %v", path, err)
			return nil
		}

		switch rootElementName(data) {
		case "busDefinition":
			bd, perr := parseBusDefinition(data)
			if perr != nil {
				rep.Add(runreport.LibraryParseWarning, 0, 0, "%s: %v", path, perr)
				return nil
			}
			entry := cat[bd.VLNV]
			if entry == nil {
				entry = &model.CatalogEntry{}
				cat[bd.VLNV] = entry
			}
			entry.Bus = bd
		case "abstractionDefinition":
			ad, perr := parseAbstractionDefinition(data)
			if perr != nil {
				rep.Add(runreport.LibraryParseWarning, 0, 0, "%s: %v", path, perr)
				return nil
			}
			pendingAbs = append(pendingAbs, ad)
		}
		return nil
	})

	for _, ad := range pendingAbs {
		entry := cat[ad.BusRef]
		if entry == nil {
			entry = &model.CatalogEntry{Bus: model.BusDefinition{VLNV: ad.BusRef}}
			cat[ad.BusRef] = entry
		}
		entry.Abstractions = append(entry.Abstractions, ad)
	}

	return cat
}

// rootElementName peeks at the first StartElement of an XML document
// without caring which namespace prefix it carries.
func rootElementName(data []byte) string {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, err := dec.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local
		}
	}
}

// --- busDefinition ---------------------------------------------------------

type xmlBusDefinition struct {
	XMLName          xml.Name       `xml:"busDefinition"`
	Vendor           string         `xml:"vendor"`
	Library          string         `xml:"library"`
	Name             string         `xml:"name"`
	Version          string         `xml:"version"`
	DirectConnection bool           `xml:"directConnection"`
	IsAddressable    bool           `xml:"isAddressable"`
	Parameters       *xmlParamsList `xml:"parameters"`
}

type xmlParamsList struct {
	Parameter []xmlParamEntry `xml:"parameter"`
}

type xmlParamEntry struct {
	Name string `xml:"name"`
}

func parseBusDefinition(data []byte) (model.BusDefinition, error) {
	var doc xmlBusDefinition
	if err := xml.Unmarshal(data, &doc); err != nil {
		return model.BusDefinition{}, err
	}
	if doc.Vendor == "" || doc.Library == "" || doc.Name == "" || doc.Version == "" {
		return model.BusDefinition{}, fmt.Errorf("missing vendor/library/name/version")
	}

	bd := model.BusDefinition{
		VLNV:             model.VLNV{Vendor: doc.Vendor, Library: doc.Library, Name: doc.Name, Version: doc.Version},
		IsAddressable:    doc.IsAddressable,
		DirectConnection: doc.DirectConnection,
		IsClockBus:       strings.EqualFold(doc.Name, "clock"),
		IsResetBus:       strings.EqualFold(doc.Name, "reset"),
	}
	if doc.Parameters != nil {
		for _, p := range doc.Parameters.Parameter {
			if p.Name != "" {
				bd.ParamNames = append(bd.ParamNames, p.Name)
			}
		}
	}
	return bd, nil
}

// --- abstractionDefinition --------------------------------------------------

type xmlAbstractionDefinition struct {
	XMLName xml.Name     `xml:"abstractionDefinition"`
	Vendor  string       `xml:"vendor"`
	Library string       `xml:"library"`
	Name    string       `xml:"name"`
	Version string       `xml:"version"`
	BusType xmlVLNVAttrs `xml:"busType"`
	Ports   xmlPortsList `xml:"ports"`
}

type xmlVLNVAttrs struct {
	Vendor  string `xml:"vendor,attr"`
	Library string `xml:"library,attr"`
	Name    string `xml:"name,attr"`
	Version string `xml:"version,attr"`
}

type xmlPortsList struct {
	Port []xmlPort `xml:"port"`
}

type xmlPort struct {
	LogicalName string  `xml:"logicalName"`
	Wire        xmlWire `xml:"wire"`
}

type xmlWire struct {
	Qualifier *xmlQualifier `xml:"qualifier"`
	OnMaster  *xmlSide      `xml:"onMaster"`
	OnSlave   *xmlSide      `xml:"onSlave"`
}

type xmlQualifier struct {
	IsClock bool `xml:"isClock"`
	IsReset bool `xml:"isReset"`
}

type xmlSide struct {
	Presence  string `xml:"presence"`
	Direction string `xml:"direction"`
	Width     string `xml:"width"`
	Default   string `xml:"default"`
}

func parseAbstractionDefinition(data []byte) (model.AbstractionDefinition, error) {
	var doc xmlAbstractionDefinition
	if err := xml.Unmarshal(data, &doc); err != nil {
		return model.AbstractionDefinition{}, err
	}
	if doc.Vendor == "" || doc.Library == "" || doc.Name == "" || doc.Version == "" {
		return model.AbstractionDefinition{}, fmt.Errorf("missing vendor/library/name/version")
	}

	ad := model.AbstractionDefinition{
		VLNV: model.VLNV{Vendor: doc.Vendor, Library: doc.Library, Name: doc.Name, Version: doc.Version},
		BusRef: model.VLNV{
			Vendor: doc.BusType.Vendor, Library: doc.BusType.Library,
			Name: doc.BusType.Name, Version: doc.BusType.Version,
		},
	}

	for _, p := range doc.Ports.Port {
		if p.LogicalName == "" {
			continue
		}
		lp := model.LogicalPort{Name: p.LogicalName}
		if p.Wire.Qualifier != nil {
			lp.IsClock = p.Wire.Qualifier.IsClock
			lp.IsReset = p.Wire.Qualifier.IsReset
		}
		if p.Wire.OnMaster != nil {
			lp.Master = sideDescriptor(p.Wire.OnMaster)
		}
		if p.Wire.OnSlave != nil {
			lp.Slave = sideDescriptor(p.Wire.OnSlave)
		} else if lp.Master != nil {
			// Mirror-slave inference (§4.3): invert direction, copy
			// presence/width, so the matcher never special-cases this.
			lp.Slave = mirrorSide(lp.Master)
		}
		ad.LogicalPorts = append(ad.LogicalPorts, lp)
	}

	return ad, nil
}

func sideDescriptor(s *xmlSide) *model.SideDescriptor {
	presence := model.Presence(strings.ToLower(s.Presence))
	if presence == "" {
		presence = model.PresenceRequired
	}
	return &model.SideDescriptor{
		Presence:  presence,
		Direction: model.Direction(strings.ToLower(s.Direction)),
		Width:     model.WidthExpr{Raw: s.Width},
		Default:   s.Default,
	}
}

func mirrorSide(master *model.SideDescriptor) *model.SideDescriptor {
	return &model.SideDescriptor{
		Presence:  master.Presence,
		Direction: invertDirection(master.Direction),
		Width:     master.Width,
		Default:   master.Default,
	}
}

func invertDirection(d model.Direction) model.Direction {
	switch d {
	case model.DirIn:
		return model.DirOut
	case model.DirOut:
		return model.DirIn
	default:
		return d
	}
}

// --- cache -------------------------------------------------------------

type cacheFile struct {
	LibsMaxMTime int64
	Catalog      model.Catalog
}

func loadCache(path string, currentMaxMTime int64) (model.Catalog, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, false
	}
	if cf.LibsMaxMTime < currentMaxMTime {
		return nil, false
	}
	return cf.Catalog, true
}

// saveCache writes the cache atomically: a temp file in the same
// directory, then os.Rename, per §5's atomic-write requirement.
func saveCache(path string, maxMTime int64, cat model.Catalog) error {
	data, err := json.MarshalIndent(cacheFile{LibsMaxMTime: maxMTime, Catalog: cat}, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp." + strconv.FormatInt(time.Now().UnixNano(), 36)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
