package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"github.com/uksrc/emerlin2caom/internal/adapters/casa"
	"github.com/uksrc/emerlin2caom/internal/adapters/fits"
	"github.com/uksrc/emerlin2caom/internal/astro"
	"github.com/uksrc/emerlin2caom/internal/caom"
	"github.com/uksrc/emerlin2caom/internal/emcp"
	"github.com/uksrc/emerlin2caom/internal/fileinfo"
	"github.com/uksrc/emerlin2caom/internal/model"
)

const (
	correlatorAlgorithm = "correlator"
	pipelineName        = "eMCP"
	pipelineProducer    = "e-MERLIN"
	radioBand           = "Radio"
	equinoxJ2000        = 2000.0
	coordSysICRS        = "ICRS"
)

// ObservationSet is everything assembled from one observation directory.
type ObservationSet struct {
	Correlator *caom.Observation
	Antennas   []*caom.Observation
	Targets    []*caom.Observation
	Collisions []*caom.CollisionError
}

// All returns every observation, members before the correlator.
func (s *ObservationSet) All() []*caom.Observation {
	all := make([]*caom.Observation, 0, len(s.Antennas)+len(s.Targets)+1)
	all = append(all, s.Antennas...)
	all = append(all, s.Targets...)
	return append(all, s.Correlator)
}

// Assembler builds the CAOM graph for an observation directory.
type Assembler struct {
	names      model.NameConfig
	source     casa.Source
	files      *fileinfo.Reader
	policy     caom.ShortenPolicy
	readHeader func(path string) (*fits.ImageHeader, error)
}

// NewAssembler returns an Assembler. Each Assemble call shortens URIs with a
// fresh Shortener using policy, so collisions are only reported within one
// observation set.
func NewAssembler(names model.NameConfig, source casa.Source, files *fileinfo.Reader, policy caom.ShortenPolicy) *Assembler {
	if files == nil {
		files = fileinfo.NewReader()
	}
	if policy == "" {
		policy = caom.PolicyTruncate
	}
	return &Assembler{
		names:      names,
		source:     source,
		files:      files,
		policy:     policy,
		readHeader: fits.ExtractHeader,
	}
}

// build carries the state of one Assemble call.
type build struct {
	*Assembler
	layout    *Layout
	set       *ObservationSet
	shortener *caom.Shortener
	planeIDs  *caom.Shortener
	seen      []model.StorageName
}

// Assemble reads the metadata under layout and returns the observation set.
// Failures to read required inputs are returned as *InputError.
func (a *Assembler) Assemble(ctx context.Context, layout *Layout, runID model.RunID) (*ObservationSet, error) {
	b := &build{
		Assembler: a,
		layout:    layout,
		set:       &ObservationSet{},
		shortener: caom.NewShortener(a.policy),
		planeIDs:  caom.NewShortener(a.policy),
	}
	defer func() {
		for _, name := range b.seen {
			a.files.Unset(name)
		}
	}()

	summary, err := a.source.Summary(ctx, layout.AvgMS)
	if err != nil {
		return nil, b.inputError(fmt.Errorf("measurement set metadata: %w", err))
	}
	info, err := emcp.ReadFile(layout.InfoFile)
	if err != nil {
		return nil, b.inputError(err)
	}
	provenance, err := newProvenance(info, summary, runID)
	if err != nil {
		return nil, b.inputError(err)
	}

	if err := b.antennas(summary); err != nil {
		return nil, err
	}
	if err := b.targets(summary); err != nil {
		return nil, err
	}
	if err := b.correlator(ctx, summary, provenance); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "observation assembled",
		"observation_id", layout.ObsID,
		"antennas", len(b.set.Antennas),
		"targets", len(b.set.Targets),
		"planes", len(b.set.Correlator.Planes()),
		"collisions", len(b.set.Collisions),
	)
	return b.set, nil
}

func (b *build) inputError(err error) error {
	return &InputError{ObservationDir: b.layout.Root, Err: err}
}

func newProvenance(info emcp.Info, summary *casa.Summary, runID model.RunID) (*caom.Provenance, error) {
	version, err := info.Require(emcp.KeyPipelineVersion)
	if err != nil {
		return nil, err
	}
	p := &caom.Provenance{
		Name:      pipelineName,
		Version:   version,
		Project:   summary.Project(),
		Producer:  pipelineProducer,
		RunID:     runID.String(),
		Reference: info.Get(emcp.KeyPipelinePath),
	}
	if casaVersion := info.Get(emcp.KeyCASAVersion); casaVersion != "" {
		p.Keywords = append(p.Keywords, "CASA "+casaVersion)
	}
	if runDate := info.Get(emcp.KeyRunDate); runDate != "" {
		p.Keywords = append(p.Keywords, "run "+runDate)
	}
	return p, nil
}

func (b *build) antennas(summary *casa.Summary) error {
	for _, ant := range summary.Antennas {
		obs, err := caom.NewSimpleObservation(b.names.Collection, b.layout.ObsID+"_"+ant.Name)
		if err != nil {
			return err
		}
		loc := ant.Position.Cartesian()
		obs.MetaRelease = summary.Release()
		obs.Telescope = &caom.Telescope{
			Name:        ant.Name,
			GeoLocation: &caom.GeoLocation{X: loc.X, Y: loc.Y, Z: loc.Z},
		}
		obs.Instrument = &caom.Instrument{Name: ant.Name}
		b.set.Antennas = append(b.set.Antennas, obs)
	}
	return nil
}

func (b *build) targets(summary *casa.Summary) error {
	seen := make(map[string]bool)
	for _, field := range summary.Fields {
		if seen[field.Name] {
			continue
		}
		seen[field.Name] = true

		obs, err := caom.NewSimpleObservation(b.names.Collection, b.layout.ObsID+"_"+field.Name)
		if err != nil {
			return err
		}
		obs.Intent = caom.IntentScience
		obs.MetaRelease = summary.Release()
		obs.Target = &caom.Target{Name: field.Name, Type: "object"}
		if project := summary.Project(); project != "" {
			obs.Proposal = &caom.Proposal{ID: project, Project: project}
		}
		if summary.Observatory != "" {
			obs.Telescope = &caom.Telescope{Name: summary.Observatory}
		}
		if pos, ok := targetPosition(field); ok {
			obs.TargetPosition = pos
		}
		b.set.Targets = append(b.set.Targets, obs)
	}
	return nil
}

// targetPosition uses the phase centre, falling back to the position encoded
// in the source name.
func targetPosition(field casa.Field) (*caom.TargetPosition, bool) {
	pos := &caom.TargetPosition{CoordSys: coordSysICRS, Equinox: equinoxJ2000}
	if pc := field.PhaseCenter; pc != nil {
		pos.Coordinates = caom.Point{CVal1: astro.Degrees(pc.RA), CVal2: astro.Degrees(pc.Dec)}
		return pos, true
	}
	parsed, err := astro.ParseTargetName(field.Name)
	if err != nil {
		slog.Warn("no position for target", "target", field.Name, "error", err)
		return nil, false
	}
	pos.Coordinates = caom.Point{CVal1: parsed.RA, CVal2: parsed.Dec}
	return pos, true
}

func (b *build) correlator(ctx context.Context, summary *casa.Summary, provenance *caom.Provenance) error {
	obs, err := caom.NewDerivedObservation(b.names.Collection, b.layout.ObsID, correlatorAlgorithm)
	if err != nil {
		return err
	}
	obs.Type = "science"
	obs.Intent = caom.IntentScience
	obs.MetaRelease = summary.Release()
	if project := summary.Project(); project != "" {
		obs.Proposal = &caom.Proposal{ID: project, Project: project}
	}
	obs.Target = &caom.Target{Name: b.layout.ObsID, Keywords: summary.FieldNames()}
	obs.Telescope = &caom.Telescope{Name: summary.Observatory, Keywords: summary.AntennaNames()}
	if p := summary.ObservatoryPosition; p != nil {
		loc := p.Cartesian()
		obs.Telescope.GeoLocation = &caom.GeoLocation{X: loc.X, Y: loc.Y, Z: loc.Z}
	}
	for _, member := range append(append([]*caom.Observation(nil), b.set.Antennas...), b.set.Targets...) {
		if err := obs.AddMember(member.URI()); err != nil {
			return err
		}
	}
	b.set.Correlator = obs

	for i, msPath := range b.layout.MeasurementSets() {
		ms := summary
		if i > 0 {
			if ms, err = b.source.Summary(ctx, msPath); err != nil {
				return b.inputError(fmt.Errorf("measurement set metadata: %w", err))
			}
		}
		productType := caom.ProductScience
		if strings.HasPrefix(msPath, filepath.Join(b.layout.Root, "splits")) {
			productType = caom.ProductCalibration
		}
		plane, err := b.measurementSetPlane(msPath, ms, provenance, productType)
		if err != nil {
			return err
		}
		if plane == nil {
			continue
		}
		if err := obs.AddPlane(plane); err != nil {
			return err
		}
	}

	return b.auxiliary(obs)
}

// measurementSetPlane describes one measurement set. A nil plane means its
// shortened productID collided with another plane and it was skipped.
func (b *build) measurementSetPlane(msPath string, summary *casa.Summary, provenance *caom.Provenance, productType caom.ProductType) (*caom.Plane, error) {
	name := model.NewStorageName(msPath, b.names)
	if !name.IsValid() {
		return nil, b.inputError(fmt.Errorf("no product id for %s", msPath))
	}
	productID, err := b.planeIDs.Shorten(name.ProductID)
	var collision *caom.CollisionError
	if errors.As(err, &collision) {
		b.set.Collisions = append(b.set.Collisions, collision)
		return nil, nil
	}
	plane, err := caom.NewPlane(productID)
	if err != nil {
		return nil, err
	}
	plane.DataRelease = summary.Release()
	plane.MetaRelease = plane.DataRelease
	plane.DataProductType = caom.DataProductVisibility
	plane.CalibrationLevel = caom.CalibrationCalibrated
	prov := *provenance
	plane.Provenance = &prov

	if plane.Energy, err = energy(summary); err != nil {
		return nil, b.inputError(fmt.Errorf("%s: %w", name.ProductID, err))
	}
	if plane.Time, err = timeAxis(summary); err != nil {
		return nil, b.inputError(fmt.Errorf("%s: %w", name.ProductID, err))
	}
	states, err := summary.PolarizationStates()
	if err != nil {
		return nil, b.inputError(fmt.Errorf("%s: %w", name.ProductID, err))
	}
	plane.Polarization = &caom.Polarization{Dimension: summary.PolarizationDimension(), States: states}

	uri := b.artifactURI(b.names.Scheme, b.layout.Rel(msPath))
	info, err := b.describe(name, uri)
	if err != nil {
		return nil, err
	}
	artifact, err := b.artifact(uri, info, productType, caom.ReleaseData)
	if err != nil {
		return nil, err
	}
	if artifact != nil {
		if err := plane.AddArtifact(artifact); err != nil {
			return nil, err
		}
	}
	return plane, nil
}

func energy(summary *casa.Summary) (*caom.Energy, error) {
	lower, upper, err := summary.WavelengthBounds()
	if err != nil {
		return nil, err
	}
	bounds, err := caom.NewInterval(lower, upper)
	if err != nil {
		return nil, err
	}
	width, err := summary.ChannelWidthWavelength()
	if err != nil {
		return nil, err
	}
	band, err := summary.BandName()
	if err != nil {
		return nil, err
	}
	return &caom.Energy{
		Bounds:       bounds,
		Dimension:    summary.ChannelCount(),
		SampleSize:   width,
		BandpassName: band,
		EnergyBands:  []string{radioBand},
	}, nil
}

func timeAxis(summary *casa.Summary) (*caom.Time, error) {
	lower, upper, err := summary.TimeBounds()
	if err != nil {
		return nil, err
	}
	bounds, err := caom.NewInterval(lower, upper)
	if err != nil {
		return nil, err
	}
	scans := summary.ScanCount()
	t := &caom.Time{
		Bounds:    bounds,
		Dimension: scans,
		Exposure:  summary.Exposure(),
	}
	if scans > 0 {
		t.SampleSize = (upper - lower) / float64(scans)
	}
	return t, nil
}

// auxiliary attaches weblog plots and images to the plane they describe.
func (b *build) auxiliary(obs *caom.Observation) error {
	dirs := append(append([]string(nil), b.layout.PlotDirs...), b.layout.ImageDirs...)
	for _, dir := range dirs {
		paths, err := files(dir)
		if err != nil {
			return b.inputError(err)
		}
		for _, path := range paths {
			plane := matchPlane(obs, filepath.Base(dir), filepath.Base(path))
			if plane == nil {
				slog.Debug("no plane for auxiliary file", "path", path)
				continue
			}
			if strings.HasSuffix(path, imageSuffix) {
				if err := b.imagePosition(plane, path); err != nil {
					return err
				}
			}
			productType, releaseType := auxiliaryTypes(path)
			scheme := b.names.Scheme
			if productType == caom.ProductPreview && b.names.PreviewScheme != "" {
				scheme = b.names.PreviewScheme
			}
			uri := b.artifactURI(scheme, b.layout.Rel(path))
			info, err := b.describe(model.NewStorageName(path, b.names), uri)
			if err != nil {
				return err
			}
			artifact, err := b.artifact(uri, info, productType, releaseType)
			if err != nil {
				return err
			}
			if artifact == nil {
				continue
			}
			if err := plane.AddArtifact(artifact); err != nil {
				return err
			}
		}
	}
	return nil
}

// matchPlane picks the plane whose productID occurs in the directory or
// file name, preferring the longest productID.
func matchPlane(obs *caom.Observation, dir, file string) *caom.Plane {
	var best *caom.Plane
	for _, p := range obs.Planes() {
		if !strings.Contains(dir, p.ProductID) && !strings.Contains(file, p.ProductID) {
			continue
		}
		if best == nil || len(p.ProductID) > len(best.ProductID) {
			best = p
		}
	}
	return best
}

func auxiliaryTypes(path string) (caom.ProductType, caom.ReleaseType) {
	switch fileinfo.ContentType(path) {
	case "image/png", "image/gif", "image/jpeg":
		return caom.ProductPreview, caom.ReleaseMeta
	case fileinfo.FITSType:
		return caom.ProductAuxiliary, caom.ReleaseData
	}
	return caom.ProductAuxiliary, caom.ReleaseMeta
}

// imagePosition sets the plane footprint from a primary image header.
func (b *build) imagePosition(plane *caom.Plane, path string) error {
	h, err := b.readHeader(path)
	if err != nil {
		return b.inputError(fmt.Errorf("image header %s: %w", path, err))
	}
	width := float64(h.PixWidth) * math.Abs(h.PixWidthScale)
	length := float64(h.PixLength) * math.Abs(h.PixLengthScale)
	plane.Position = &caom.Position{
		Bounds: caom.Circle{
			Center: caom.Point{CVal1: h.RADeg, CVal2: h.DecDeg},
			Radius: math.Max(width, length) / 2,
		},
		NAxis1:     h.PixWidth,
		NAxis2:     h.PixLength,
		SampleSize: math.Abs(h.PixWidthScale) * 3600,
	}
	return nil
}

// describe caches the FileInfo of name under the observation-scoped uri, so
// equally named products of different observations never share an entry.
func (b *build) describe(name model.StorageName, uri string) (*fileinfo.FileInfo, error) {
	name.DestinationURIs = []string{uri}
	if err := b.files.Set(name); err != nil {
		return nil, b.inputError(err)
	}
	b.seen = append(b.seen, name)
	info, _ := b.files.FileInfo(uri)
	return info, nil
}

func (b *build) artifactURI(scheme, rel string) string {
	return scheme + ":" + b.names.Collection + "/" + b.layout.ObsID + "/" + rel
}

// artifact shortens fullURI and describes it from info. A nil artifact means
// the shortened URI collided and was skipped.
func (b *build) artifact(fullURI string, info *fileinfo.FileInfo, productType caom.ProductType, releaseType caom.ReleaseType) (*caom.Artifact, error) {
	uri, err := b.shortener.Shorten(fullURI)
	var collision *caom.CollisionError
	if errors.As(err, &collision) {
		b.set.Collisions = append(b.set.Collisions, collision)
		return nil, nil
	}
	a, err := caom.NewArtifact(uri, productType, releaseType)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return a, nil
	}
	a.ContentType = info.FileType
	a.ContentLength = info.Size
	if info.MD5Sum != "" {
		if err := a.SetMD5(info.MD5Sum); err != nil {
			return nil, err
		}
	}
	return a, nil
}
