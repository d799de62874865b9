package caom

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Namespace    = "http://www.opencadc.org/caom2/xml/v2.4"
	XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

	prefix = "caom2"

	// DateFormat is the IVOA timestamp layout used for release dates.
	DateFormat = "2006-01-02T15:04:05.000"

	keywordSeparator = "|"
)

// Write serializes obs as a CAOM-2.4 document.
func Write(w io.Writer, obs *Observation) error {
	raw, err := xml.Marshal(toDocument(obs))
	if err != nil {
		return fmt.Errorf("marshal observation %s: %w", obs.ObservationID, err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	dec := xml.NewDecoder(bytes.NewReader(raw))
	root := true
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("rewrite observation %s: %w", obs.ObservationID, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			tok = qualify(t, root)
			root = false
		case xml.EndElement:
			t.Name.Local = prefix + ":" + t.Name.Local
			tok = t
		}
		if err := enc.EncodeToken(tok); err != nil {
			return fmt.Errorf("write observation %s: %w", obs.ObservationID, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// qualify moves an element and its id/type attributes into the caom2 and
// xsi namespaces.
func qualify(start xml.StartElement, root bool) xml.StartElement {
	out := xml.StartElement{Name: xml.Name{Local: prefix + ":" + start.Name.Local}}
	if root {
		out.Attr = append(out.Attr,
			xml.Attr{Name: xml.Name{Local: "xmlns:" + prefix}, Value: Namespace},
			xml.Attr{Name: xml.Name{Local: "xmlns:xsi"}, Value: XSINamespace},
		)
	}
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "type":
			a.Name.Local = "xsi:type"
		case "id":
			a.Name.Local = prefix + ":id"
		}
		out.Attr = append(out.Attr, a)
	}
	return out
}

// Read parses a CAOM-2.4 document.
func Read(r io.Reader) (*Observation, error) {
	var doc xmlObservation
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode observation: %w", err)
	}
	return fromDocument(&doc)
}

func WriteFile(path string, obs *Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, obs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ReadFile(path string) (*Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

func toDocument(obs *Observation) *xmlObservation {
	doc := &xmlObservation{
		XSIType:       prefix + ":" + string(obs.Kind),
		ID:            obs.ID.String(),
		Collection:    obs.Collection,
		ObservationID: obs.ObservationID,
		MetaRelease:   formatDate(obs.MetaRelease),
		Algorithm:     xmlAlgorithm{Name: obs.Algorithm},
		Type:          obs.Type,
		Intent:        string(obs.Intent),
		Members:       obs.Members(),
	}
	if p := obs.Proposal; p != nil {
		doc.Proposal = &xmlProposal{ID: p.ID, Project: p.Project}
	}
	if t := obs.Target; t != nil {
		doc.Target = &xmlTarget{Name: t.Name, Type: t.Type, Keywords: joinKeywords(t.Keywords)}
	}
	if tp := obs.TargetPosition; tp != nil {
		doc.TargetPosition = &xmlTargetPosition{
			CoordSys:    tp.CoordSys,
			Equinox:     ptr(tp.Equinox),
			Coordinates: xmlPoint{CVal1: tp.Coordinates.CVal1, CVal2: tp.Coordinates.CVal2},
		}
	}
	if t := obs.Telescope; t != nil {
		doc.Telescope = &xmlTelescope{Name: t.Name, Keywords: joinKeywords(t.Keywords)}
		if g := t.GeoLocation; g != nil {
			doc.Telescope.GeoLocationX = ptr(g.X)
			doc.Telescope.GeoLocationY = ptr(g.Y)
			doc.Telescope.GeoLocationZ = ptr(g.Z)
		}
	}
	if in := obs.Instrument; in != nil {
		doc.Instrument = &xmlInstrument{Name: in.Name, Keywords: joinKeywords(in.Keywords)}
	}
	for _, p := range obs.planes {
		doc.Planes = append(doc.Planes, planeDocument(p))
	}
	return doc
}

func planeDocument(p *Plane) xmlPlane {
	doc := xmlPlane{
		ID:              p.ID.String(),
		ProductID:       p.ProductID,
		MetaRelease:     formatDate(p.MetaRelease),
		DataRelease:     formatDate(p.DataRelease),
		DataProductType: string(p.DataProductType),
	}
	if p.CalibrationLevel != 0 {
		doc.CalibrationLevel = ptr(p.CalibrationLevel)
	}
	if pr := p.Provenance; pr != nil {
		doc.Provenance = &xmlProvenance{
			Name:      pr.Name,
			Version:   pr.Version,
			Project:   pr.Project,
			Producer:  pr.Producer,
			RunID:     pr.RunID,
			Reference: pr.Reference,
			Keywords:  joinKeywords(pr.Keywords),
		}
	}
	if pos := p.Position; pos != nil {
		doc.Position = &xmlPosition{
			Bounds: xmlCircle{
				XSIType: prefix + ":Circle",
				Center:  xmlPoint{CVal1: pos.Bounds.Center.CVal1, CVal2: pos.Bounds.Center.CVal2},
				Radius:  pos.Bounds.Radius,
			},
		}
		if pos.NAxis1 != 0 || pos.NAxis2 != 0 {
			doc.Position.Dimension = &xmlDimension2D{NAxis1: pos.NAxis1, NAxis2: pos.NAxis2}
		}
		if pos.SampleSize != 0 {
			doc.Position.SampleSize = ptr(pos.SampleSize)
		}
	}
	if e := p.Energy; e != nil {
		doc.Energy = &xmlEnergy{
			Bounds:       xmlInterval{Lower: e.Bounds.Lower, Upper: e.Bounds.Upper},
			Dimension:    ptr(e.Dimension),
			SampleSize:   ptr(e.SampleSize),
			BandpassName: e.BandpassName,
			EnergyBands:  e.EnergyBands,
		}
	}
	if t := p.Time; t != nil {
		doc.Time = &xmlTime{
			Bounds:     xmlInterval{Lower: t.Bounds.Lower, Upper: t.Bounds.Upper},
			Dimension:  ptr(t.Dimension),
			SampleSize: ptr(t.SampleSize),
			Exposure:   ptr(t.Exposure),
		}
	}
	if pol := p.Polarization; pol != nil {
		doc.Polarization = &xmlPolarization{States: pol.States, Dimension: pol.Dimension}
	}
	for _, a := range p.artifacts {
		ad := xmlArtifact{
			ID:              a.ID.String(),
			URI:             a.URI,
			ProductType:     string(a.ProductType),
			ReleaseType:     string(a.ReleaseType),
			ContentType:     a.ContentType,
			ContentChecksum: a.ContentChecksum,
		}
		if a.ContentLength != 0 {
			ad.ContentLength = ptr(a.ContentLength)
		}
		doc.Artifacts = append(doc.Artifacts, ad)
	}
	return doc
}

func fromDocument(doc *xmlObservation) (*Observation, error) {
	var (
		obs *Observation
		err error
	)
	switch kind := ObservationKind(localName(doc.XSIType)); kind {
	case Simple:
		obs, err = NewSimpleObservation(doc.Collection, doc.ObservationID)
	case Derived:
		obs, err = NewDerivedObservation(doc.Collection, doc.ObservationID, doc.Algorithm.Name)
	default:
		return nil, &ValidationError{Entity: "observation", Field: "xsi:type", Reason: "unknown " + doc.XSIType}
	}
	if err != nil {
		return nil, err
	}
	if obs.ID, err = parseID("observation", doc.ID); err != nil {
		return nil, err
	}
	if obs.MetaRelease, err = parseDate(doc.MetaRelease); err != nil {
		return nil, err
	}
	obs.Type = doc.Type
	obs.Intent = Intent(doc.Intent)
	if p := doc.Proposal; p != nil {
		obs.Proposal = &Proposal{ID: p.ID, Project: p.Project}
	}
	if t := doc.Target; t != nil {
		obs.Target = &Target{Name: t.Name, Type: t.Type, Keywords: splitKeywords(t.Keywords)}
	}
	if tp := doc.TargetPosition; tp != nil {
		obs.TargetPosition = &TargetPosition{
			CoordSys:    tp.CoordSys,
			Coordinates: Point{CVal1: tp.Coordinates.CVal1, CVal2: tp.Coordinates.CVal2},
		}
		if tp.Equinox != nil {
			obs.TargetPosition.Equinox = *tp.Equinox
		}
	}
	if t := doc.Telescope; t != nil {
		obs.Telescope = &Telescope{Name: t.Name, Keywords: splitKeywords(t.Keywords)}
		if t.GeoLocationX != nil && t.GeoLocationY != nil && t.GeoLocationZ != nil {
			obs.Telescope.GeoLocation = &GeoLocation{X: *t.GeoLocationX, Y: *t.GeoLocationY, Z: *t.GeoLocationZ}
		}
	}
	if in := doc.Instrument; in != nil {
		obs.Instrument = &Instrument{Name: in.Name, Keywords: splitKeywords(in.Keywords)}
	}
	for i := range doc.Planes {
		p, err := planeFromDocument(&doc.Planes[i])
		if err != nil {
			return nil, err
		}
		if err := obs.AddPlane(p); err != nil {
			return nil, err
		}
	}
	for _, m := range doc.Members {
		if err := obs.AddMember(m); err != nil {
			return nil, err
		}
	}
	return obs, nil
}

func planeFromDocument(doc *xmlPlane) (*Plane, error) {
	p, err := NewPlane(doc.ProductID)
	if err != nil {
		return nil, err
	}
	if p.ID, err = parseID("plane", doc.ID); err != nil {
		return nil, err
	}
	if p.MetaRelease, err = parseDate(doc.MetaRelease); err != nil {
		return nil, err
	}
	if p.DataRelease, err = parseDate(doc.DataRelease); err != nil {
		return nil, err
	}
	p.DataProductType = DataProductType(doc.DataProductType)
	if doc.CalibrationLevel != nil {
		p.CalibrationLevel = *doc.CalibrationLevel
	}
	if pr := doc.Provenance; pr != nil {
		p.Provenance = &Provenance{
			Name:      pr.Name,
			Version:   pr.Version,
			Project:   pr.Project,
			Producer:  pr.Producer,
			RunID:     pr.RunID,
			Reference: pr.Reference,
			Keywords:  splitKeywords(pr.Keywords),
		}
	}
	if pos := doc.Position; pos != nil {
		p.Position = &Position{Bounds: Circle{
			Center: Point{CVal1: pos.Bounds.Center.CVal1, CVal2: pos.Bounds.Center.CVal2},
			Radius: pos.Bounds.Radius,
		}}
		if pos.Dimension != nil {
			p.Position.NAxis1, p.Position.NAxis2 = pos.Dimension.NAxis1, pos.Dimension.NAxis2
		}
		p.Position.SampleSize = deref(pos.SampleSize)
	}
	if e := doc.Energy; e != nil {
		bounds, err := NewInterval(e.Bounds.Lower, e.Bounds.Upper)
		if err != nil {
			return nil, err
		}
		p.Energy = &Energy{
			Bounds:       bounds,
			Dimension:    deref(e.Dimension),
			SampleSize:   deref(e.SampleSize),
			BandpassName: e.BandpassName,
			EnergyBands:  e.EnergyBands,
		}
	}
	if t := doc.Time; t != nil {
		bounds, err := NewInterval(t.Bounds.Lower, t.Bounds.Upper)
		if err != nil {
			return nil, err
		}
		p.Time = &Time{
			Bounds:     bounds,
			Dimension:  deref(t.Dimension),
			SampleSize: deref(t.SampleSize),
			Exposure:   deref(t.Exposure),
		}
	}
	if pol := doc.Polarization; pol != nil {
		p.Polarization = &Polarization{Dimension: pol.Dimension, States: pol.States}
	}
	for _, ad := range doc.Artifacts {
		a, err := NewArtifact(ad.URI, ProductType(ad.ProductType), ReleaseType(ad.ReleaseType))
		if err != nil {
			return nil, err
		}
		if a.ID, err = parseID("artifact", ad.ID); err != nil {
			return nil, err
		}
		a.ContentType = ad.ContentType
		a.ContentLength = deref(ad.ContentLength)
		a.ContentChecksum = ad.ContentChecksum
		if err := p.AddArtifact(a); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func parseID(entity, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &ValidationError{Entity: entity, Field: "id", Reason: err.Error()}
	}
	return id, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateFormat)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, &ValidationError{Entity: "date", Reason: err.Error()}
	}
	return t, nil
}

func joinKeywords(keywords []string) string {
	return strings.Join(sortedSet(keywords), keywordSeparator)
}

func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, keywordSeparator)
}

func localName(qname string) string {
	if i := strings.IndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
