package model

// User is the authenticated actor. Identities live in the hosted auth
// platform, so the struct is never persisted here; ID is the token subject.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// RawTrade is the loose, pre-normalization shape shared by form posts, CSV
// rows and legacy records.
type RawTrade map[string]interface{}

// Clone returns a shallow copy so callers' maps are never mutated.
func (r RawTrade) Clone() RawTrade {
	out := make(RawTrade, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
