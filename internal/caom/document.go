package caom

import "encoding/xml"

// Document shapes. Tags carry no namespace prefix; the writer adds the
// caom2 and xsi prefixes and the reader matches on local names.

type xmlObservation struct {
	XMLName        xml.Name           `xml:"Observation"`
	XSIType        string             `xml:"type,attr"`
	ID             string             `xml:"id,attr"`
	Collection     string             `xml:"collection"`
	ObservationID  string             `xml:"observationID"`
	MetaRelease    string             `xml:"metaRelease,omitempty"`
	Algorithm      xmlAlgorithm       `xml:"algorithm"`
	Type           string             `xml:"type,omitempty"`
	Intent         string             `xml:"intent,omitempty"`
	Proposal       *xmlProposal       `xml:"proposal"`
	Target         *xmlTarget         `xml:"target"`
	TargetPosition *xmlTargetPosition `xml:"targetPosition"`
	Telescope      *xmlTelescope      `xml:"telescope"`
	Instrument     *xmlInstrument     `xml:"instrument"`
	Planes         []xmlPlane         `xml:"planes>plane"`
	Members        []string           `xml:"members>observationURI"`
}

type xmlAlgorithm struct {
	Name string `xml:"name"`
}

type xmlProposal struct {
	ID      string `xml:"id"`
	Project string `xml:"project,omitempty"`
}

type xmlTarget struct {
	Name     string `xml:"name"`
	Type     string `xml:"type,omitempty"`
	Keywords string `xml:"keywords,omitempty"`
}

type xmlPoint struct {
	CVal1 float64 `xml:"cval1"`
	CVal2 float64 `xml:"cval2"`
}

type xmlTargetPosition struct {
	CoordSys    string   `xml:"coordsys"`
	Equinox     *float64 `xml:"equinox"`
	Coordinates xmlPoint `xml:"coordinates"`
}

type xmlTelescope struct {
	Name         string   `xml:"name"`
	GeoLocationX *float64 `xml:"geoLocationX"`
	GeoLocationY *float64 `xml:"geoLocationY"`
	GeoLocationZ *float64 `xml:"geoLocationZ"`
	Keywords     string   `xml:"keywords,omitempty"`
}

type xmlInstrument struct {
	Name     string `xml:"name"`
	Keywords string `xml:"keywords,omitempty"`
}

type xmlPlane struct {
	ID               string           `xml:"id,attr"`
	ProductID        string           `xml:"productID"`
	MetaRelease      string           `xml:"metaRelease,omitempty"`
	DataRelease      string           `xml:"dataRelease,omitempty"`
	DataProductType  string           `xml:"dataProductType,omitempty"`
	CalibrationLevel *int             `xml:"calibrationLevel"`
	Provenance       *xmlProvenance   `xml:"provenance"`
	Position         *xmlPosition     `xml:"position"`
	Energy           *xmlEnergy       `xml:"energy"`
	Time             *xmlTime         `xml:"time"`
	Polarization     *xmlPolarization `xml:"polarization"`
	Artifacts        []xmlArtifact    `xml:"artifacts>artifact"`
}

type xmlProvenance struct {
	Name      string `xml:"name"`
	Version   string `xml:"version,omitempty"`
	Project   string `xml:"project,omitempty"`
	Producer  string `xml:"producer,omitempty"`
	RunID     string `xml:"runID,omitempty"`
	Reference string `xml:"reference,omitempty"`
	Keywords  string `xml:"keywords,omitempty"`
}

type xmlCircle struct {
	XSIType string   `xml:"type,attr"`
	Center  xmlPoint `xml:"center"`
	Radius  float64  `xml:"radius"`
}

type xmlDimension2D struct {
	NAxis1 int `xml:"naxis1"`
	NAxis2 int `xml:"naxis2"`
}

type xmlPosition struct {
	Bounds     xmlCircle       `xml:"bounds"`
	Dimension  *xmlDimension2D `xml:"dimension"`
	SampleSize *float64        `xml:"sampleSize"`
}

type xmlInterval struct {
	Lower float64 `xml:"lower"`
	Upper float64 `xml:"upper"`
}

type xmlEnergy struct {
	Bounds       xmlInterval `xml:"bounds"`
	Dimension    *int        `xml:"dimension"`
	SampleSize   *float64    `xml:"sampleSize"`
	BandpassName string      `xml:"bandpassName,omitempty"`
	EnergyBands  []string    `xml:"energyBands>emBand"`
}

type xmlTime struct {
	Bounds     xmlInterval `xml:"bounds"`
	Dimension  *int        `xml:"dimension"`
	SampleSize *float64    `xml:"sampleSize"`
	Exposure   *float64    `xml:"exposure"`
}

type xmlPolarization struct {
	States    []string `xml:"states>state"`
	Dimension int      `xml:"dimension"`
}

type xmlArtifact struct {
	ID              string `xml:"id,attr"`
	URI             string `xml:"uri"`
	ProductType     string `xml:"productType"`
	ReleaseType     string `xml:"releaseType"`
	ContentType     string `xml:"contentType,omitempty"`
	ContentLength   *int64 `xml:"contentLength"`
	ContentChecksum string `xml:"contentChecksum,omitempty"`
}
