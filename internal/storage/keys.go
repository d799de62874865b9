package storage

import "path"

// ObjectKey locates a mirrored observation document:
// {prefix}/{collection}/{observation_id}.xml
type ObjectKey struct {
	Prefix        string
	Collection    string
	ObservationID string
}

func (k ObjectKey) Key() string {
	return path.Join(k.Prefix, k.Collection, k.ObservationID+".xml")
}
