package caom

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxURILength is the longest artifact URI the archive accepts.
const MaxURILength = 64

// Observation is the root of a CAOM graph. Planes are owned; members of a
// derived observation are referenced by URI only.
type Observation struct {
	ID            uuid.UUID
	Kind          ObservationKind
	Collection    string
	ObservationID string
	Algorithm     string

	Type           string
	Intent         Intent
	MetaRelease    time.Time
	Proposal       *Proposal
	Target         *Target
	TargetPosition *TargetPosition
	Telescope      *Telescope
	Instrument     *Instrument

	planes  []*Plane
	members []string
}

// NewSimpleObservation returns a simple observation with a fresh id.
func NewSimpleObservation(collection, observationID string) (*Observation, error) {
	return newObservation(Simple, collection, observationID, SimpleAlgorithm)
}

// NewDerivedObservation returns a derived observation produced by algorithm.
func NewDerivedObservation(collection, observationID, algorithm string) (*Observation, error) {
	if algorithm == SimpleAlgorithm {
		return nil, &ValidationError{Entity: "observation", Field: "algorithm", Reason: "derived observations cannot use " + SimpleAlgorithm}
	}
	return newObservation(Derived, collection, observationID, algorithm)
}

func newObservation(kind ObservationKind, collection, observationID, algorithm string) (*Observation, error) {
	switch {
	case collection == "":
		return nil, &ValidationError{Entity: "observation", Field: "collection", Reason: "empty"}
	case observationID == "":
		return nil, &ValidationError{Entity: "observation", Field: "observationID", Reason: "empty"}
	case algorithm == "":
		return nil, &ValidationError{Entity: "observation", Field: "algorithm", Reason: "empty"}
	case strings.ContainsAny(collection, "/ ") || strings.ContainsAny(observationID, "/ "):
		return nil, &ValidationError{Entity: "observation", Reason: "collection and observationID must not contain '/' or spaces"}
	}
	return &Observation{
		ID:            newID(),
		Kind:          kind,
		Collection:    collection,
		ObservationID: observationID,
		Algorithm:     algorithm,
	}, nil
}

// URI returns caom:{collection}/{observationID}.
func (o *Observation) URI() string {
	return ObservationURI(o.Collection, o.ObservationID)
}

func ObservationURI(collection, observationID string) string {
	return "caom:" + collection + "/" + observationID
}

// AddPlane attaches p, rejecting a productID already present.
func (o *Observation) AddPlane(p *Plane) error {
	if p == nil {
		return &ValidationError{Entity: "plane", Reason: "nil"}
	}
	if o.Plane(p.ProductID) != nil {
		return &ValidationError{Entity: "plane", Field: "productID", Reason: "duplicate " + p.ProductID}
	}
	o.planes = append(o.planes, p)
	return nil
}

// Plane returns the plane with productID, or nil.
func (o *Observation) Plane(productID string) *Plane {
	for _, p := range o.planes {
		if p.ProductID == productID {
			return p
		}
	}
	return nil
}

// Planes returns the planes in insertion order.
func (o *Observation) Planes() []*Plane {
	return append([]*Plane(nil), o.planes...)
}

// AddMember references another observation by URI. Only derived
// observations have members.
func (o *Observation) AddMember(uri string) error {
	if o.Kind != Derived {
		return &ValidationError{Entity: "observation", Field: "members", Reason: "only derived observations have members"}
	}
	if !strings.HasPrefix(uri, "caom:") {
		return &ValidationError{Entity: "member", Reason: "not an observation URI: " + uri}
	}
	for _, m := range o.members {
		if m == uri {
			return &ValidationError{Entity: "member", Reason: "duplicate " + uri}
		}
	}
	o.members = append(o.members, uri)
	return nil
}

func (o *Observation) Members() []string {
	return append([]string(nil), o.members...)
}

// Plane is one data product of an observation.
type Plane struct {
	ID        uuid.UUID
	ProductID string

	MetaRelease      time.Time
	DataRelease      time.Time
	DataProductType  DataProductType
	CalibrationLevel int
	Provenance       *Provenance
	Position         *Position
	Energy           *Energy
	Time             *Time
	Polarization     *Polarization

	artifacts []*Artifact
}

func NewPlane(productID string) (*Plane, error) {
	switch {
	case productID == "":
		return nil, &ValidationError{Entity: "plane", Field: "productID", Reason: "empty"}
	case URILength(productID) > MaxURILength:
		return nil, &ValidationError{Entity: "plane", Field: "productID", Reason: "longer than 64 characters: " + productID}
	}
	return &Plane{ID: newID(), ProductID: productID}, nil
}

// AddArtifact attaches a, rejecting a URI already present on the plane.
func (p *Plane) AddArtifact(a *Artifact) error {
	if a == nil {
		return &ValidationError{Entity: "artifact", Reason: "nil"}
	}
	if p.Artifact(a.URI) != nil {
		return &ValidationError{Entity: "artifact", Field: "uri", Reason: "duplicate " + a.URI + " in plane " + p.ProductID}
	}
	p.artifacts = append(p.artifacts, a)
	return nil
}

func (p *Plane) Artifact(uri string) *Artifact {
	for _, a := range p.artifacts {
		if a.URI == uri {
			return a
		}
	}
	return nil
}

func (p *Plane) Artifacts() []*Artifact {
	return append([]*Artifact(nil), p.artifacts...)
}

// Artifact is a single file or directory belonging to a plane.
type Artifact struct {
	ID          uuid.UUID
	URI         string
	ProductType ProductType
	ReleaseType ReleaseType

	ContentType     string
	ContentLength   int64
	ContentChecksum string
}

// NewArtifact validates uri, which must already be shortened.
func NewArtifact(uri string, productType ProductType, releaseType ReleaseType) (*Artifact, error) {
	switch {
	case uri == "":
		return nil, &ValidationError{Entity: "artifact", Field: "uri", Reason: "empty"}
	case URILength(uri) > MaxURILength:
		return nil, &ValidationError{Entity: "artifact", Field: "uri", Reason: "longer than 64 characters: " + uri}
	case productType == "":
		return nil, &ValidationError{Entity: "artifact", Field: "productType", Reason: "empty"}
	case releaseType == "":
		return nil, &ValidationError{Entity: "artifact", Field: "releaseType", Reason: "empty"}
	}
	return &Artifact{ID: newID(), URI: uri, ProductType: productType, ReleaseType: releaseType}, nil
}

// SetMD5 records an md5 hex digest as the content checksum.
func (a *Artifact) SetMD5(sum string) error {
	b, err := hex.DecodeString(sum)
	if err != nil || len(b) != 16 {
		return &ValidationError{Entity: "artifact", Field: "contentChecksum", Reason: "not an md5 hex digest: " + sum}
	}
	a.ContentChecksum = "md5:" + strings.ToLower(sum)
	return nil
}

func newID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
