package model

import "encoding/json"

// MarshalJSON flattens Extra next to notes and session.
func (d TradeDetails) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Extra)+2)
	for k, v := range d.Extra {
		out[k] = v
	}
	if d.Notes != "" {
		out["notes"] = d.Notes
	}
	if d.Session != "" {
		out["session"] = d.Session
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads notes and session and keeps any other key in Extra.
func (d *TradeDetails) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*d = TradeDetailsFromMap(raw)
	return nil
}

// TradeDetailsFromMap builds the typed bag from a free-form object.
// Non-string notes or session values stay in Extra untouched.
func TradeDetailsFromMap(raw map[string]interface{}) TradeDetails {
	var d TradeDetails
	for k, v := range raw {
		switch k {
		case "notes":
			if s, ok := v.(string); ok {
				d.Notes = s
				continue
			}
		case "session":
			if s, ok := v.(string); ok {
				d.Session = s
				continue
			}
		}
		if v == nil {
			continue
		}
		if d.Extra == nil {
			d.Extra = make(map[string]interface{})
		}
		d.Extra[k] = v
	}
	return d
}
