package session

import (
	"encoding/json"
	"fmt"
)

// MetadataDocument is the capture metadata for a single photo. The device
// sends a small required set plus whatever extra calibration fields the
// firmware attaches; unknown fields round-trip through Extra untouched.
type MetadataDocument struct {
	PhotoID   string
	SideFlag  json.RawMessage
	Bend      json.RawMessage
	Timestamp json.RawMessage
	SessionID string

	// Extra holds caller-supplied fields outside the required set.
	Extra map[string]json.RawMessage
}

// reserved fields lifted out of the extension map.
const (
	fieldPhotoID   = "photo_id"
	fieldSideFlag  = "side_flag"
	fieldBend      = "bend"
	fieldTimestamp = "timestamp"
	fieldSessionID = "session_id"
)

// UnmarshalJSON decodes a metadata document, separating required fields
// from the open extension map.
func (d *MetadataDocument) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode metadata document: %w", err)
	}

	if v, ok := raw[fieldPhotoID]; ok {
		if err := json.Unmarshal(v, &d.PhotoID); err != nil {
			return fmt.Errorf("decode photo_id: %w", err)
		}
		delete(raw, fieldPhotoID)
	}
	if v, ok := raw[fieldSessionID]; ok {
		if err := json.Unmarshal(v, &d.SessionID); err != nil {
			return fmt.Errorf("decode session_id: %w", err)
		}
		delete(raw, fieldSessionID)
	}

	d.SideFlag = raw[fieldSideFlag]
	d.Bend = raw[fieldBend]
	d.Timestamp = raw[fieldTimestamp]
	delete(raw, fieldSideFlag)
	delete(raw, fieldBend)
	delete(raw, fieldTimestamp)

	d.Extra = raw
	return nil
}

// MarshalJSON encodes the document with required fields and extension map
// merged into one flat object.
func (d *MetadataDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.Extra)+5)
	for k, v := range d.Extra {
		out[k] = v
	}

	photoID, err := json.Marshal(d.PhotoID)
	if err != nil {
		return nil, err
	}
	out[fieldPhotoID] = photoID

	if d.SessionID != "" {
		sessionID, err := json.Marshal(d.SessionID)
		if err != nil {
			return nil, err
		}
		out[fieldSessionID] = sessionID
	}
	if len(d.SideFlag) > 0 {
		out[fieldSideFlag] = d.SideFlag
	}
	if len(d.Bend) > 0 {
		out[fieldBend] = d.Bend
	}
	if len(d.Timestamp) > 0 {
		out[fieldTimestamp] = d.Timestamp
	}

	return json.Marshal(out)
}

// Validate checks the required field set, naming the first missing field.
func (d *MetadataDocument) Validate() error {
	if d.PhotoID == "" {
		return fmt.Errorf("%w: %s", ErrMissingField, fieldPhotoID)
	}
	for _, f := range []struct {
		name  string
		value json.RawMessage
	}{
		{fieldSideFlag, d.SideFlag},
		{fieldBend, d.Bend},
		{fieldTimestamp, d.Timestamp},
	} {
		if len(f.value) == 0 || string(f.value) == "null" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}
